package guard

import (
	"fmt"
	"log/slog"
)

// IpTablesGuard inserts the host-side NAT and kill-switch-adjacent FORWARD
// rules for one namespace, tagged with a comment carrying the namespace
// name so they can be identified and removed by exact match (spec.md §4.1).
// Modeled on the teacher's command-runner shell-out pattern
// (jail/networking_host_linux.go), generalized from its fixed
// 192.168.100.0/24 HTTP/HTTPS-proxy rules to the namespace's own
// TargetSubnet and a MASQUERADE/ACCEPT kill-switch rule set.
type IpTablesGuard struct {
	logger    *slog.Logger
	namespace string
	subnet    string // e.g. "10.200.7.0/24"
	hostVeth  string
	hostIface string
}

// NewIpTablesGuard inserts the three rules described in spec.md §4.1.
func NewIpTablesGuard(logger *slog.Logger, namespace, subnet, hostVeth, hostIface string) (*IpTablesGuard, error) {
	g := &IpTablesGuard{logger: logger, namespace: namespace, subnet: subnet, hostVeth: hostVeth, hostIface: hostIface}

	if err := runAll(g.insertCommands()...); err != nil {
		return nil, err
	}
	return g, nil
}

// AttachIpTablesGuard reconstructs the handle to already-inserted rules
// from their deterministic comment tag and the recorded subnet/veth/
// interface, without inserting anything, so a process that did not
// install them can still Release them.
func AttachIpTablesGuard(logger *slog.Logger, namespace, subnet, hostVeth, hostIface string) *IpTablesGuard {
	return &IpTablesGuard{logger: logger, namespace: namespace, subnet: subnet, hostVeth: hostVeth, hostIface: hostIface}
}

func (g *IpTablesGuard) comment() string {
	return fmt.Sprintf("vopono-%s", g.namespace)
}

func (g *IpTablesGuard) insertCommands() []privilegedCommand {
	comment := g.comment()
	return []privilegedCommand{
		netAdminCommand("insert NAT MASQUERADE rule", "iptables", "-t", "nat", "-A", "POSTROUTING",
			"-s", g.subnet, "-o", g.hostIface, "-m", "comment", "--comment", comment, "-j", "MASQUERADE"),
		netAdminCommand("insert FORWARD accept rule (veth -> host)", "iptables", "-A", "FORWARD",
			"-i", g.hostVeth, "-o", g.hostIface, "-m", "comment", "--comment", comment, "-j", "ACCEPT"),
		netAdminCommand("insert FORWARD accept rule (host -> veth, established)", "iptables", "-A", "FORWARD",
			"-i", g.hostIface, "-o", g.hostVeth, "-m", "state", "--state", "RELATED,ESTABLISHED",
			"-m", "comment", "--comment", comment, "-j", "ACCEPT"),
	}
}

func (g *IpTablesGuard) deleteCommands() []privilegedCommand {
	comment := g.comment()
	return []privilegedCommand{
		netAdminCommand("delete NAT MASQUERADE rule", "iptables", "-t", "nat", "-D", "POSTROUTING",
			"-s", g.subnet, "-o", g.hostIface, "-m", "comment", "--comment", comment, "-j", "MASQUERADE"),
		netAdminCommand("delete FORWARD accept rule (veth -> host)", "iptables", "-D", "FORWARD",
			"-i", g.hostVeth, "-o", g.hostIface, "-m", "comment", "--comment", comment, "-j", "ACCEPT"),
		netAdminCommand("delete FORWARD accept rule (host -> veth, established)", "iptables", "-D", "FORWARD",
			"-i", g.hostIface, "-o", g.hostVeth, "-m", "state", "--state", "RELATED,ESTABLISHED",
			"-m", "comment", "--comment", comment, "-j", "ACCEPT"),
	}
}

// Release removes exactly the rules NewIpTablesGuard added, best-effort.
func (g *IpTablesGuard) Release() {
	runAllBestEffort(func(description string, err error, output []byte) {
		g.logger.Warn("iptables cleanup failed", "step", description, "error", err, "output", string(output))
	}, g.deleteCommands()...)
}
