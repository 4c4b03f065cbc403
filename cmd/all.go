package cmd

import (
	_ "ssm-keeper/cmd/client"
	_ "ssm-keeper/cmd/doctor"
	_ "ssm-keeper/cmd/logs"
	_ "ssm-keeper/cmd/metrics"
	_ "ssm-keeper/cmd/orphan"
	_ "ssm-keeper/cmd/root"
	_ "ssm-keeper/cmd/server"
	_ "ssm-keeper/cmd/session"
	_ "ssm-keeper/cmd/upgrade"
)
