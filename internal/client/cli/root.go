package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if a.engine.IsOnline() {
		s += "online"
	} else {
		s += "offline"
	}
	return fmt.Sprintf("(%s)", s)
}

// Root runs the interactive command loop. Command handlers print their own
// errors; the loop itself only parses and dispatches.
func (a *App) Root(ctx context.Context) {
	fmt.Println("FieldSync client (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("fs %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: add, list, sync [strategy], conflicts, resolve <id>, requeue <id>, wipe, exit")
			} else {
				fmt.Println("Available commands: login, wipe, exit")
			}
		case "login":
			a.login(ctx)
		case "add":
			a.add(ctx)
		case "list":
			a.list(ctx)
		case "sync":
			a.sync(ctx, args)
		case "conflicts":
			a.conflicts()
		case "resolve":
			a.resolve(ctx, args)
		case "requeue":
			a.requeue(ctx, args)
		case "wipe":
			a.wipe(ctx)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command (type 'help')")
		}
	}
}
