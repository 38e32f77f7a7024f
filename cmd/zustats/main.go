// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"go.astrophena.name/megazu/internal/cli"
	"go.astrophena.name/megazu/internal/ledger"
	"go.astrophena.name/megazu/internal/store"
)

func main() { cli.Main(new(app)) }

type app struct {
	storeDSN string
	format   string

	// for tests
	store store.Store
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.storeDSN, "store", "", "Document store `DSN`.")
	fs.StringVar(&a.format, "format", "text", "Output `format` (text or yaml).")
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	if len(env.Args) == 0 {
		return fmt.Errorf("%w: pass at least one group ID", cli.ErrInvalidArgs)
	}
	if a.format != "text" && a.format != "yaml" {
		return fmt.Errorf("%w: unknown format %q", cli.ErrInvalidArgs, a.format)
	}

	if a.store == nil {
		dsn := cmp.Or(a.storeDSN, env.Getenv("STORE"))
		if dsn == "" {
			return fmt.Errorf("%w: pass the store with -store flag or STORE environment variable", cli.ErrInvalidArgs)
		}
		s, err := store.Open(ctx, dsn)
		if err != nil {
			return err
		}
		defer s.Close()
		a.store = s
	}

	l := ledger.New(a.store, ledger.DefaultPolicy)
	groups := make(map[string]map[string]ledger.User)
	for _, groupID := range env.Args {
		members, err := l.Members(ctx, groupID)
		if err != nil {
			return err
		}
		groups[groupID] = members
	}
	s := compute(groups)

	if a.format == "yaml" {
		enc := yaml.NewEncoder(env.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	}
	printText(env.Stdout, s)
	return nil
}

func printText(w io.Writer, s Stats) {
	total := s.Activities.Sum()
	pct := func(a, b int) string { return fmt.Sprintf("%.1f%%", ratio(a, b)*100) }

	fmt.Fprintln(w, "🤖 MegaZu Bot Statistics")
	fmt.Fprintln(w, "========================")

	fmt.Fprintln(w, "\n📊 Overall")
	fmt.Fprintf(w, "Total Groups: %d\n", s.TotalGroups)
	fmt.Fprintf(w, "Active Groups: %d\n", s.ActiveGroups)
	fmt.Fprintf(w, "Group Activity Rate: %s\n", pct(s.ActiveGroups, s.TotalGroups))
	fmt.Fprintf(w, "Total Users: %d\n", s.TotalUsers)
	fmt.Fprintf(w, "Active Users: %d\n", s.ActiveUsers)
	fmt.Fprintf(w, "User Activity Rate: %s\n", pct(s.ActiveUsers, s.TotalUsers))

	fmt.Fprintln(w, "\n📈 Total Activities")
	fmt.Fprintf(w, "Fitness Photos: %d\n", s.Activities.Fitness)
	fmt.Fprintf(w, "Shipping Updates: %d\n", s.Activities.Shipping)
	fmt.Fprintf(w, "Mindfulness Sessions: %d\n", s.Activities.Mindfulness)
	fmt.Fprintf(w, "Roasts: %d\n", s.Activities.Roasts)
	fmt.Fprintf(w, "Total Activities: %d\n", total)

	fmt.Fprintln(w, "\n🔥 Top Roasters")
	for i, r := range s.TopRoasters {
		fmt.Fprintf(w, "%d. %s: %d roasts\n", i+1, r.Username, r.Roasts)
	}

	fmt.Fprintln(w, "\n📅 Monthly Breakdown")
	for _, m := range s.Monthly {
		fmt.Fprintf(w, "%s: fitness %d, shipping %d, mindfulness %d, roasts %d, total %d\n",
			m.Period, m.Fitness, m.Shipping, m.Mindfulness, m.Roasts, m.Sum())
	}

	fmt.Fprintln(w, "\n📊 Activity Distribution")
	fmt.Fprintf(w, "Fitness: %s\n", pct(s.Activities.Fitness, total))
	fmt.Fprintf(w, "Shipping: %s\n", pct(s.Activities.Shipping, total))
	fmt.Fprintf(w, "Mindfulness: %s\n", pct(s.Activities.Mindfulness, total))
	fmt.Fprintf(w, "Roasts: %s\n", pct(s.Activities.Roasts, total))

	fmt.Fprintln(w, "\n📈 Averages")
	fmt.Fprintf(w, "Activities per Active User: %.1f\n", ratio(total, s.ActiveUsers))
	fmt.Fprintf(w, "Activities per Active Group: %.1f\n", ratio(total, s.ActiveGroups))
	fmt.Fprintf(w, "Users per Group: %.1f\n", ratio(s.TotalUsers, s.TotalGroups))
	fmt.Fprintf(w, "Roasts per Active User: %.1f\n", ratio(s.Activities.Roasts, s.ActiveUsers))
}
