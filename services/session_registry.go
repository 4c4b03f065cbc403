package services

import (
	"sort"
	"sync"

	"ssm-keeper/internal/models"
)

/**
 * SessionRegistry 以 (实例ID, 本地端口, 远端端口) 为键的内存会话表
 * @description
 * - 会话仅在成功启动到确认停止之间存在于表中
 * - Put 在同一次加锁内完成查重和占位插入，两个并发start不会同时通过检查
 * - 端口参数为0时按通配匹配，用于只凭实例ID定位会话
 */
type SessionRegistry struct {
	mutex    sync.Mutex
	sessions map[models.SessionKey]*SessionInstance
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[models.SessionKey]*SessionInstance),
	}
}

/**
 * Put 插入会话占位记录
 * @param {SessionInstance} si - 会话实例，状态通常为 starting
 * @returns {error} 键已被非终态会话占用时返回 ErrSessionExists
 */
func (r *SessionRegistry) Put(si *SessionInstance) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := si.Key()
	if existing, ok := r.sessions[key]; ok {
		// 终态残留可以覆盖，其余一律拒绝，避免同一本地端口挂两个进程
		if !existing.Status.Terminal() {
			return ErrSessionExists
		}
	}
	r.sessions[key] = si
	return nil
}

/**
 * Get 按键查找会话
 * @param {string} instanceID - 实例ID
 * @param {int} localPort - 本地端口，0为通配
 * @param {int} remotePort - 远端端口，0为通配
 * @returns {SessionInstance} 未命中返回nil
 */
func (r *SessionRegistry) Get(instanceID string, localPort, remotePort int) *SessionInstance {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for key, si := range r.sessions {
		if key.InstanceID != instanceID {
			continue
		}
		if localPort != 0 && key.LocalPort != localPort {
			continue
		}
		if remotePort != 0 && key.RemotePort != remotePort {
			continue
		}
		return si
	}
	return nil
}

func (r *SessionRegistry) GetBySessionID(sessionID string) *SessionInstance {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, si := range r.sessions {
		if si.SessionID == sessionID {
			return si
		}
	}
	return nil
}

func (r *SessionRegistry) Remove(key models.SessionKey) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.sessions, key)
}

/**
 * All 返回全部会话，按实例ID和本地端口排序，保证列表输出稳定
 * @returns {[]SessionInstance} 会话切片
 */
func (r *SessionRegistry) All() []*SessionInstance {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	list := make([]*SessionInstance, 0, len(r.sessions))
	for _, si := range r.sessions {
		list = append(list, si)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].InstanceID != list[j].InstanceID {
			return list[i].InstanceID < list[j].InstanceID
		}
		return list[i].LocalPort < list[j].LocalPort
	})
	return list
}

func (r *SessionRegistry) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.sessions)
}
