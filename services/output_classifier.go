package services

import (
	"bytes"
	"strings"
	"unicode"
)

// 子进程 stdout 中携带会话标识的固定前缀，标识本身以空白结束
const sessionIDMarker = "Starting session with SessionId:"

// stderr 中已知失败的特征子串，按顺序匹配，先命中先生效
var failureSignatures = []struct {
	substr string
	err    error
}{
	{"SessionManagerPlugin is not found", ErrPluginMissing},
	{"AccessDeniedException", ErrAccessDenied},
	{"not authorized to perform", ErrAccessDenied},
	{"TargetNotConnected", ErrTargetNotConnected},
	{"is not connected", ErrTargetNotConnected},
}

/**
 * OutputClassifier 识别会话子进程输出中的成功与失败信号
 * @description
 * - MatchSessionID 在累积的stdout字节流中查找会话标识
 * - ClassifyFailure 在累积的stderr字节流中匹配已知失败特征
 * - 两个方法都接受累积缓冲区而不是单行文本，标记被分块截断时也能命中
 */
type OutputClassifier interface {
	MatchSessionID(buf []byte) (string, bool)
	ClassifyFailure(buf []byte) (error, bool)
}

type pluginClassifier struct {
	marker []byte
}

/**
 * NewOutputClassifier 创建插件输出分类器
 * @param {string} marker - 会话标识前缀，空串使用默认值
 * @returns {OutputClassifier} 返回分类器实例
 */
func NewOutputClassifier(marker string) OutputClassifier {
	if marker == "" {
		marker = sessionIDMarker
	}
	return &pluginClassifier{marker: []byte(marker)}
}

func (c *pluginClassifier) MatchSessionID(buf []byte) (string, bool) {
	for {
		idx := bytes.Index(buf, c.marker)
		if idx < 0 {
			return "", false
		}
		rest := buf[idx+len(c.marker):]
		// 跳过前缀与标识之间的空格
		for len(rest) > 0 && (rest[0] == ' ' || rest[0] == '\t') {
			rest = rest[1:]
		}
		end := bytes.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			// 标识可能尚未接收完整，等待后续字节再判
			return "", false
		}
		if end > 0 {
			return string(rest[:end]), true
		}
		// 前缀后面直接换行，这次出现没带标识，继续找下一次
		buf = rest
	}
}

func (c *pluginClassifier) ClassifyFailure(buf []byte) (error, bool) {
	text := string(buf)
	for _, sig := range failureSignatures {
		if strings.Contains(text, sig.substr) {
			return sig.err, true
		}
	}
	return nil, false
}
