package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for REPL output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	Sync(ctx context.Context) error
	Pull(ctx context.Context, force bool) error
	Push(ctx context.Context) error
	Profiles(ctx context.Context) error
	Use(ctx context.Context, id string) error
	List(ctx context.Context, collection string) error
	Add(ctx context.Context, kind string) error
	Delete(ctx context.Context, collection, id string) error
	Pay(ctx context.Context, kind, id string) error
	Undo(ctx context.Context) error
	Redo(ctx context.Context) error
	Backup(ctx context.Context) error
	Restore(ctx context.Context, key string) error
}

// runREPL reads commands from reader until EOF or exit. Handler errors
// are reported by the handlers themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("finsync> %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if err != nil {
				return
			}
			continue
		}
		cmd, args := parts[0], parts[1:]
		arg := func(i int) string {
			if i < len(args) {
				return args[i]
			}
			return ""
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: status, sync, pull [force], push, profiles, use, (l)ist, add, delete, pay, undo, redo, backup, restore, logout, exit")
			} else {
				printlnFn("Available commands: register, login, status, profiles, use, (l)ist, add, delete, pay, undo, redo, backup, restore, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "status":
			_ = a.Status(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "pull":
			_ = a.Pull(ctx, arg(0) == "force")

		case "push":
			_ = a.Push(ctx)

		case "profiles":
			_ = a.Profiles(ctx)

		case "use":
			if arg(0) == "" {
				printlnFn("Usage: use <profileId>")
				break
			}
			_ = a.Use(ctx, arg(0))

		case "l", "list":
			_ = a.List(ctx, arg(0))

		case "add":
			if arg(0) == "" {
				printlnFn("Usage: add <transaction|note|debt|bill|investment|category|profile>")
				break
			}
			_ = a.Add(ctx, arg(0))

		case "delete":
			if len(args) < 2 {
				printlnFn("Usage: delete <collection> <id>")
				break
			}
			_ = a.Delete(ctx, args[0], args[1])

		case "pay":
			if len(args) < 2 {
				printlnFn("Usage: pay <bill|debt> <id>")
				break
			}
			_ = a.Pay(ctx, args[0], args[1])

		case "undo":
			_ = a.Undo(ctx)

		case "redo":
			_ = a.Redo(ctx)

		case "backup":
			_ = a.Backup(ctx)

		case "restore":
			_ = a.Restore(ctx, arg(0))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}
