package models

// OrphanProcess describes one OS process matching the tunnel subprocess
// invocation signature. Tracked marks processes that belong to a live
// registry entry of this keeper instance.
type OrphanProcess struct {
	Pid        int    `json:"pid"`        //进程PID
	Executable string `json:"executable"` //可执行文件名
	Command    string `json:"command"`    //完整命令行
	Tracked    bool   `json:"tracked"`    //是否为本进程注册表内的会话
}

// OrphanKillResult reports the outcome of a force-kill sweep
type OrphanKillResult struct {
	Found  int             `json:"found"`  //匹配到的进程数
	Killed int             `json:"killed"` //成功杀掉的进程数
	Failed []OrphanProcess `json:"failed,omitempty"`
}
