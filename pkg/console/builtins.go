package console

import (
	"fmt"
	"sort"
	"time"

	"github.com/rodaine/table"
)

// registerBuiltins installs the built-in command vocabulary. Registration
// cannot fail here; names are non-empty constants.
func registerBuiltins(d *Dispatcher) {
	_ = d.RegisterHandler("help", d.handleHelp)
	_ = d.RegisterHandler("clear", d.handleClear)
	_ = d.RegisterHandler("clients", d.handleClients)
	_ = d.RegisterHandler("history", d.handleHistory)
	_ = d.RegisterHandler("stats", d.handleStats)
}

func (d *Dispatcher) handleHelp(p *ParsedCommand) (string, error) {
	fmt.Fprintln(d.out, "Available commands:")
	fmt.Fprintln(d.out, "  help [--verbose]     list commands; verbose also lists registered names")
	fmt.Fprintln(d.out, "  clear                clear local console output")
	fmt.Fprintln(d.out, "  clients [--timeout=N] list connections; mark those idle over N seconds")
	fmt.Fprintln(d.out, "  history [--count=N]  list up to N most recent commands")
	fmt.Fprintln(d.out, "  stats                show dispatch throughput counters")
	fmt.Fprintln(d.out, "  delay <ms>           block the dispatch tick (load testing)")

	if p.NamedBool("verbose") {
		names := d.handlerNames()
		sort.Strings(names)
		fmt.Fprintln(d.out, "Registered handlers:")
		for _, name := range names {
			fmt.Fprintf(d.out, "  %s\n", name)
		}
	}

	return "help displayed", nil
}

func (d *Dispatcher) handleClear(p *ParsedCommand) (string, error) {
	// ANSI clear screen + cursor home.
	fmt.Fprint(d.out, "\033[2J\033[H")
	return "console cleared", nil
}

func (d *Dispatcher) handleClients(p *ParsedCommand) (string, error) {
	// --timeout=N marks connections idle for more than N seconds. Display
	// only; eviction stays with the cleanup sweep.
	timeout, err := p.NamedInt("timeout", 0)
	if err != nil {
		return "", err
	}

	clients := d.manager.Clients()
	sort.Slice(clients, func(i, j int) bool { return clients[i].ID < clients[j].ID })

	t := table.New("Client", "Session", "Commands", "Idle").WithWriter(d.out)
	for _, client := range clients {
		idle := client.IdleFor.Round(time.Second).String()
		if timeout > 0 && client.IdleFor > time.Duration(timeout)*time.Second {
			idle += " (idle)"
		}
		t.AddRow(client.ID, client.SessionID, client.CommandCount, idle)
	}
	t.Print()

	return fmt.Sprintf("%d client(s) connected", len(clients)), nil
}

func (d *Dispatcher) handleHistory(p *ParsedCommand) (string, error) {
	history := d.GetHistory()

	count, err := p.NamedInt("count", len(history))
	if err != nil {
		return "", err
	}
	if count < 0 {
		return "", fmt.Errorf("argument --count=%d cannot be negative", count)
	}
	if count < len(history) {
		history = history[len(history)-count:]
	}

	t := table.New("Time", "Client", "Command").WithWriter(d.out)
	for _, cmd := range history {
		t.AddRow(cmd.ReceivedAt.Format("15:04:05"), cmd.ClientID, cmd.Text)
	}
	t.Print()

	return fmt.Sprintf("%d command(s) shown", len(history)), nil
}

func (d *Dispatcher) handleStats(p *ParsedCommand) (string, error) {
	snap := d.Stats()

	fmt.Fprintf(d.out, "Total commands:   %d\n", snap.TotalCommands)
	fmt.Fprintf(d.out, "This window:      %d\n", snap.CommandsThisWindow)
	fmt.Fprintf(d.out, "Peak per window:  %d\n", snap.PeakPerWindow)
	fmt.Fprintf(d.out, "Rolling avg:      %.2fms\n", snap.RollingAverageMs)

	return "stats displayed", nil
}
