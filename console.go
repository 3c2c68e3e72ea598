package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"CommunityBot/fault"
	"CommunityBot/updater"
)

// controller is the part of the supervisor the console drives.
type controller interface {
	Start() error
	Stop() error
	Restart() error
	Status() string
}

type console struct {
	sup     controller
	upd     *updater.Updater
	restart func()
	out     io.Writer
}

const consoleHelp = `Commands:
  start    start the bot
  stop     stop the bot
  restart  stop, wait, start again
  status   show whether the bot is online
  check    check for a new version
  update   install a new version and restart
  quit     stop the bot and exit`

// serve reads commands from in until quit, EOF or ctx is done.
func (c *console) serve(ctx context.Context, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(c.out, "Type 'help' for commands.")
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				<-ctx.Done()
				return
			}
			if c.exec(ctx, line) {
				return
			}
		}
	}
}

// exec runs one console command and reports whether the console should
// exit.
func (c *console) exec(ctx context.Context, line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
	case "start":
		if err := c.sup.Start(); err != nil {
			fmt.Fprintln(c.out, err)
			break
		}
		fmt.Fprintln(c.out, "Starting bot...")
	case "stop":
		if err := c.sup.Stop(); err != nil {
			fmt.Fprintln(c.out, err)
			break
		}
		fmt.Fprintln(c.out, "Bot stopped.")
	case "restart":
		if err := c.sup.Restart(); err != nil {
			fmt.Fprintln(c.out, err)
			break
		}
		fmt.Fprintln(c.out, "Restarting bot...")
	case "status":
		fmt.Fprintln(c.out, "Status:", c.sup.Status())
	case "check":
		if c.upd == nil {
			fmt.Fprintln(c.out, "Self-update is not configured.")
			break
		}
		res, err := c.upd.Check(ctx)
		if err != nil {
			fmt.Fprintln(c.out, fault.Status(err))
			break
		}
		fmt.Fprintln(c.out, res.Message)
	case "update":
		if c.upd == nil {
			fmt.Fprintln(c.out, "Self-update is not configured.")
			break
		}
		res, _ := c.upd.Run(ctx, func(msg string) { fmt.Fprintln(c.out, msg) })
		fmt.Fprintln(c.out, res.Message)
		if res.Outcome == updater.Updated && c.restart != nil {
			fmt.Fprintln(c.out, "Restarting bot now…")
			c.restart()
		}
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(c.out, consoleHelp)
	default:
		fmt.Fprintf(c.out, "Unknown command %q. Type 'help' for commands.\n", line)
	}
	return false
}
