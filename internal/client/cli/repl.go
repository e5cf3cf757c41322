package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/otpkeeper/internal/client/client"
	"github.com/dmitrijs2005/otpkeeper/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// errLocalOnly is returned by commands that need direct vault access.
var errLocalOnly = errors.New("not available in agent mode")

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isAgent() bool
	List(ctx context.Context) error
	Codes(ctx context.Context) error
	Add(ctx context.Context) error
	AddURI(ctx context.Context, args []string) error
	Next(ctx context.Context, args []string) error
	Pin(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Passwd(ctx context.Context) error
	Unpasswd(ctx context.Context) error
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
	Export(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
	QR(ctx context.Context, args []string) error
	Watch(ctx context.Context) error
}

const (
	helpLocal = "Available commands: (l)ist, (c)odes, add, adduri, next, pin, edit, delete, " +
		"passwd, unpasswd, lock, unlock, export, import, qr, watch, exit"
	helpAgent = "Available commands: (l)ist, (c)odes, adduri, next, lock, unlock, watch, exit"
)

// runREPL starts a simple read-eval-print loop for the otpkeeper CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a' with the remaining tokens as arguments.
// Accounts are addressed by their number in the last list or by a hash
// prefix. Command errors are printed and the loop continues. It exits on
// EOF or when the user types "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("otp %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isAgent() {
				printlnFn(helpAgent)
			} else {
				printlnFn(helpLocal)
			}

		case "l", "list":
			cmdErr = a.List(ctx)
		case "c", "codes":
			cmdErr = a.Codes(ctx)
		case "add":
			cmdErr = a.Add(ctx)
		case "adduri":
			cmdErr = a.AddURI(ctx, args)
		case "next":
			cmdErr = a.Next(ctx, args)
		case "pin":
			cmdErr = a.Pin(ctx, args)
		case "edit":
			cmdErr = a.Edit(ctx, args)
		case "delete":
			cmdErr = a.Delete(ctx, args)
		case "passwd":
			cmdErr = a.Passwd(ctx)
		case "unpasswd":
			cmdErr = a.Unpasswd(ctx)
		case "lock":
			cmdErr = a.Lock(ctx)
		case "unlock":
			cmdErr = a.Unlock(ctx)
		case "export":
			cmdErr = a.Export(ctx, args)
		case "import":
			cmdErr = a.Import(ctx, args)
		case "qr":
			cmdErr = a.QR(ctx, args)
		case "watch":
			cmdErr = a.Watch(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("error:", describe(cmdErr))
		}
	}
}

// describe turns the errors users can act on into a hint.
func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		return "wrong passphrase"
	case errors.Is(err, client.ErrUnauthorized):
		return "no agent session, use unlock"
	case errors.Is(err, common.ErrVaultLocked):
		return "vault is locked, use unlock"
	case errors.Is(err, common.ErrTokenExpired):
		return "agent session expired, use unlock"
	case errors.Is(err, common.ErrNoPassphrase):
		return "vault has no passphrase, use passwd to set one"
	case errors.Is(err, client.ErrUnavailable):
		return "agent is not running"
	default:
		return err.Error()
	}
}
