package root

import (
	"github.com/zenGate-Global/studio-scheduler/apps/cli/cmd/auth"
	"github.com/zenGate-Global/studio-scheduler/apps/cli/cmd/bootstrap"
	"github.com/zenGate-Global/studio-scheduler/apps/cli/cmd/schedule"
	tenantcmd "github.com/zenGate-Global/studio-scheduler/apps/cli/cmd/tenant"
)

func init() {
	Root().AddCommand(auth.Command())
	Root().AddCommand(bootstrap.Command())
	Root().AddCommand(tenantcmd.Command())
	Root().AddCommand(schedule.Command())
}
