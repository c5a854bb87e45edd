package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ledgerkeeper/ledgerkeeper/internal/models"
)

func (a *App) getStatus() string {
	if a.userName == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.userName)
}

// Root runs the read-eval-print loop. Command handlers log their own errors;
// the loop only cares about I/O.
func (a *App) Root(ctx context.Context) {

	log.Println("Welcome to LedgerKeeper CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("lk %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		if !a.isLoggedIn() {
			switch cmd {
			case "help":
				fmt.Println("Available commands: register, login, exit")
			case "register":
				if err := a.Register(ctx); err != nil {
					log.Println(err.Error())
				}
			case "login":
				if err := a.Login(ctx); err != nil {
					log.Println(err.Error())
				}
			case "exit", "quit":
				fmt.Println("Bye!")
				return
			default:
				fmt.Println("Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "help":
			fmt.Println("Entries:  addcat, addbudget, addexp, addinc, addrecexp, addrecinc,")
			fmt.Println("          list <type> [all], del <type> <id>, restore <type> <id>,")
			fmt.Println("          attach <expense-id> <file>, generate")
			fmt.Println("Sync:     sync, fullresync, status, conflicts, resolve <type> <id> <local|remote>")
			fmt.Println("Session:  logout, exit")
		case "addcat":
			a.addCategory(ctx)
		case "addbudget":
			a.addBudget(ctx)
		case "addexp":
			a.addTransaction(ctx, models.EntityExpense)
		case "addinc":
			a.addTransaction(ctx, models.EntityIncome)
		case "addrecexp":
			a.addRecurring(ctx, models.EntityRecurringExpense)
		case "addrecinc":
			a.addRecurring(ctx, models.EntityRecurringIncome)
		case "l", "list":
			a.list(ctx, args)
		case "del", "delete":
			a.delete(ctx, args)
		case "restore":
			a.restore(ctx, args)
		case "attach":
			a.attach(ctx, args)
		case "generate":
			a.generate(ctx)
		case "sync":
			a.sync(ctx)
		case "fullresync":
			a.fullResync(ctx)
		case "status":
			a.status(ctx)
		case "conflicts":
			a.conflicts(ctx)
		case "resolve":
			a.resolve(ctx, args)
		case "logout":
			a.Logout(ctx)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}
