// Package transport holds in-repo adapters of bot.Transport. Network chat
// adapters (Telegram etc.) live outside this module; the console adapter
// below drives the bot from a terminal for local runs and demos.
package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"kartoteka.org/internal/bot"
)

// Console reads lines from in and prints replies to out, acting as a single
// chat user.
type Console struct {
	in       *bufio.Scanner
	out      io.Writer
	userID   int64
	username string
}

var _ bot.Transport = (*Console)(nil)

func NewConsole(in io.Reader, out io.Writer, userID int64, username string) *Console {
	return &Console{
		in:       bufio.NewScanner(in),
		out:      out,
		userID:   userID,
		username: username,
	}
}

// Send prints the outbound text; markup is stripped to keep the terminal
// readable and the keyboard is rendered as a hint line.
func (c *Console) Send(ctx context.Context, userID int64, text string, opts bot.SendOptions) error {
	if opts.ParseMode == bot.ParseModeHTML {
		text = stripMarkup(text)
	}
	if _, err := fmt.Fprintln(c.out, text); err != nil {
		return err
	}
	if opts.Keyboard != nil {
		var rows []string
		for _, row := range opts.Keyboard {
			rows = append(rows, strings.Join(row, " | "))
		}
		if _, err := fmt.Fprintf(c.out, "[%s]\n", strings.Join(rows, " / ")); err != nil {
			return err
		}
	}
	return nil
}

// Run feeds stdin lines through the router until EOF or context cancel.
func (c *Console) Run(ctx context.Context, router *bot.Router) error {
	for c.in.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		router.HandleMessage(ctx, bot.Message{
			ID:       uuid.NewString(),
			UserID:   c.userID,
			Username: c.username,
			Text:     c.in.Text(),
		})
	}
	return c.in.Err()
}

var markupReplacer = strings.NewReplacer(
	"<b>", "", "</b>", "",
	"<i>", "", "</i>", "",
)

func stripMarkup(s string) string {
	return markupReplacer.Replace(s)
}
