package calctl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"github.com/okian/calmate/internal/adapters/gcal"
	app "github.com/okian/calmate/internal/app"
	"github.com/okian/calmate/internal/assistant"
	"github.com/okian/calmate/internal/config"
	"github.com/okian/calmate/internal/domain/model"
	"github.com/okian/calmate/pkg/logger"
)

// Defaults for global flags.
const (
	DefaultURL     = "http://localhost:9080"
	DefaultTimeout = 90 * time.Second
	DefaultTTL     = 30 * 24 * time.Hour
)

// AccountOpener opens the account store used by link. The returned func
// releases it.
type AccountOpener func(ctx context.Context, sessionTTL time.Duration) (Accounts, *oauth2.Config, func(), error)

// Env is the process environment of the CLI.
type Env struct {
	In           io.Reader
	Out          io.Writer
	OpenAccounts AccountOpener
}

// OpenLocalAccounts opens the store configured for the server (CALMATE_*
// variables, .env, CALMATE_CONFIG) so linked accounts are visible to it.
func OpenLocalAccounts(ctx context.Context, sessionTTL time.Duration) (Accounts, *oauth2.Config, func(), error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return nil, nil, nil, fmt.Errorf("%w: google_client_id, google_client_secret", config.ErrMissingCredentials)
	}
	oauthCfg := gcal.OAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.GoogleTokenURL)
	svc := app.New(
		app.WithDBPath(cfg.DBPath),
		app.WithRefresher(gcal.NewRefresher(oauthCfg, nil)),
		app.WithSessionPurgeInterval(0),
		app.WithSessionTTL(sessionTTL),
		app.WithLogger(logger.Get().Named("calctl")),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, nil, nil, err
	}
	return svc, oauthCfg, svc.Stop, nil
}

// NewApp builds the calctl command tree.
func NewApp(env Env) *cli.App {
	if env.In == nil {
		env.In = os.Stdin
	}
	if env.Out == nil {
		env.Out = os.Stdout
	}
	if env.OpenAccounts == nil {
		env.OpenAccounts = OpenLocalAccounts
	}
	return &cli.App{
		Name:      "calctl",
		Usage:     "Link a Google Calendar and talk to the calendar assistant API.",
		Writer:    env.Out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: DefaultURL, EnvVars: []string{"CALMATE_URL"}, Usage: "Base URL of the service"},
			&cli.StringFlag{Name: "token", EnvVars: []string{"CALMATE_SESSION_TOKEN"}, Usage: "Session token"},
			&cli.DurationFlag{Name: "timeout", Value: DefaultTimeout, Usage: "HTTP request timeout"},
			&cli.BoolFlag{Name: "verbose", Usage: "Enable debug logging"},
		},
		Before: func(c *cli.Context) error {
			if err := logger.Configure("text", os.Stderr); err != nil {
				return err
			}
			if c.Bool("verbose") {
				return logger.SetLevelString("debug")
			}
			return logger.SetLevelString("warn")
		},
		Commands: []*cli.Command{
			linkCommand(env),
			eventsCommand(env),
			createCommand(env),
			deleteCommand(env),
			tokenStatusCommand(env),
			chatCommand(env),
			exportCommand(env),
		},
	}
}

func clientFrom(c *cli.Context) *Client {
	return NewClient(c.String("url"), c.String("token"), c.Duration("timeout"))
}

func linkCommand(env Env) *cli.Command {
	return &cli.Command{
		Name:  "link",
		Usage: "Authorize calendar access for a user and print a session token.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true, Usage: "User id to link the account to"},
			&cli.StringFlag{Name: "code", Usage: "Authorization code or redirect URL (prompted when empty)"},
			&cli.StringFlag{Name: "state", Usage: "State sent with the consent URL (generated when empty)"},
			&cli.DurationFlag{Name: "ttl", Value: DefaultTTL, Usage: "Session lifetime"},
		},
		Action: func(c *cli.Context) error {
			accounts, oauthCfg, release, err := env.OpenAccounts(c.Context, c.Duration("ttl"))
			if err != nil {
				return err
			}
			defer release()

			linker := NewLinker(oauthCfg, accounts, nil)
			state := c.String("state")
			if state == "" {
				state = uuid.NewString()
			}
			input := c.String("code")
			if input == "" {
				fmt.Fprintf(env.Out, "Open this link, grant access, then paste the code or the full redirect URL:\n%s\n> ", linker.AuthURL(state))
				line, err := bufio.NewReader(env.In).ReadString('\n')
				if err != nil && line == "" {
					return ErrNoCode
				}
				input = line
			}

			sess, err := linker.Complete(c.Context, c.String("user"), state, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "Linked calendar for %s.\nsession token: %s\nexpires: %s\n",
				sess.UserID, sess.Token, sess.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
}

func eventsCommand(env Env) *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "List events in a window.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "Window start (RFC 3339 or YYYY-MM-DD)"},
			&cli.StringFlag{Name: "to", Usage: "Window end (RFC 3339 or YYYY-MM-DD)"},
		},
		Action: func(c *cli.Context) error {
			events, err := clientFrom(c).Events(c.Context, c.String("from"), c.String("to"))
			if err != nil {
				return err
			}
			return printEvents(env.Out, events)
		},
	}
}

func createCommand(env Env) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create an event.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Required: true},
			&cli.StringFlag{Name: "start", Required: true, Usage: "RFC 3339 start"},
			&cli.StringFlag{Name: "end", Required: true, Usage: "RFC 3339 end"},
			&cli.StringFlag{Name: "location"},
			&cli.StringFlag{Name: "description"},
			&cli.StringSliceFlag{Name: "attendee", Usage: "Attendee email (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			event, err := clientFrom(c).CreateEvent(c.Context, EventRequest{
				Title:       c.String("title"),
				Start:       c.String("start"),
				End:         c.String("end"),
				Location:    c.String("location"),
				Description: c.String("description"),
				Attendees:   c.StringSlice("attendee"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "Created %s (%s)\n", event.Title, event.ID)
			return nil
		},
	}
}

func deleteCommand(env Env) *cli.Command {
	return &cli.Command{
		Name:  "delete",
		Usage: "Delete an event by id.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Required: true},
		},
		Action: func(c *cli.Context) error {
			outcome, err := clientFrom(c).DeleteEvent(c.Context, c.String("id"))
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "%s: %s\n", c.String("id"), outcome)
			return nil
		},
	}
}

func tokenStatusCommand(env Env) *cli.Command {
	return &cli.Command{
		Name:  "token-status",
		Usage: "Report whether the linked calendar token is usable.",
		Action: func(c *cli.Context) error {
			status, err := clientFrom(c).TokenStatus(c.Context)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "hasToken: %t\nneedsRefresh: %t\n", status.HasToken, status.NeedsRefresh)
			return nil
		},
	}
}

func chatCommand(env Env) *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Talk to the assistant. Without --message, reads one message per line until EOF or \"exit\".",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}},
		},
		Action: func(c *cli.Context) error {
			client := clientFrom(c)
			if msg := c.String("message"); msg != "" {
				reply, err := client.Chat(c.Context, msg, nil)
				if err != nil {
					return err
				}
				fmt.Fprintln(env.Out, reply.Message)
				return nil
			}
			return converse(c.Context, client, env.In, env.Out)
		},
	}
}

// converse runs a line-oriented conversation, carrying the history forward.
func converse(ctx context.Context, client *Client, in io.Reader, out io.Writer) error {
	var history []assistant.Message
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		reply, err := client.Chat(ctx, line, history)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "assistant> %s\n", reply.Message)
		history = append(history,
			assistant.Message{Text: line, Sender: "user"},
			assistant.Message{Text: reply.Message, Sender: "ai"},
		)
	}
}

func exportCommand(env Env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the window as an iCalendar file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from"},
			&cli.StringFlag{Name: "to"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (stdout when empty)"},
		},
		Action: func(c *cli.Context) error {
			w := env.Out
			if path := c.String("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return clientFrom(c).Export(c.Context, c.String("from"), c.String("to"), w)
		},
	}
}

func printEvents(w io.Writer, events []model.Event) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "No events.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tTITLE\tLOCATION\tID")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", when(e), e.Title, e.Location, e.ID)
	}
	return tw.Flush()
}

func when(e model.Event) string {
	if e.IsAllDay {
		return e.Start.Format("2006-01-02") + " all day"
	}
	start := e.Start.Format("2006-01-02 15:04")
	if e.End.Format("2006-01-02") == e.Start.Format("2006-01-02") {
		return start + "-" + e.End.Format("15:04")
	}
	return start + " - " + e.End.Format("2006-01-02 15:04")
}
