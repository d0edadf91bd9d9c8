// Package list implements the `list` subcommand: a human-readable table
// of every namespace and attachment recorded in the lock registry, read
// straight from it (spec.md §4.5 list). No liveness sweep runs first, so
// records left by processes that have since died are listed too.
package list

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/vopono-go/vopono/lockregistry"
)

// Namespace groups every attachment recorded against one namespace name.
type Namespace struct {
	Name        string
	Provider    string
	Protocol    string
	VethHostIP  string
	Attachments []lockregistry.LockRecord
}

// Collect groups every lock record in the registry by namespace, sorted by
// name for stable output. It does not check whether the recorded pids are
// still alive.
func Collect(locks *lockregistry.Registry) ([]Namespace, error) {
	records, err := locks.List("")
	if err != nil {
		return nil, fmt.Errorf("listing namespaces: %w", err)
	}

	byName := make(map[string]*Namespace)
	var order []string
	for _, r := range records {
		ns, ok := byName[r.Namespace]
		if !ok {
			ns = &Namespace{Name: r.Namespace, Provider: r.Provider, Protocol: r.Protocol, VethHostIP: r.VethHostIP}
			byName[r.Namespace] = ns
			order = append(order, r.Namespace)
		}
		ns.Attachments = append(ns.Attachments, r)
	}

	sort.Strings(order)
	result := make([]Namespace, 0, len(order))
	for _, name := range order {
		result = append(result, *byName[name])
	}
	return result, nil
}

// WriteTable renders namespaces as an aligned, tab-separated table, one
// row per attached application.
func WriteTable(w io.Writer, namespaces []Namespace) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAMESPACE\tPROVIDER\tPROTOCOL\tSUBNET\tPID\tUSER\tAPPLICATION")
	for _, ns := range namespaces {
		if len(ns.Attachments) == 0 {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t-\t-\t-\n", ns.Name, ns.Provider, ns.Protocol, ns.VethHostIP)
			continue
		}
		for _, a := range ns.Attachments {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n", ns.Name, ns.Provider, ns.Protocol, ns.VethHostIP, a.Pid, a.User, a.Application)
		}
	}
	return tw.Flush()
}
