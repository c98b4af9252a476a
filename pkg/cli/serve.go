package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/defectdesk/defectdesk/pkg/flow"
	"github.com/defectdesk/defectdesk/pkg/model"
	"github.com/defectdesk/defectdesk/pkg/repository"
	"github.com/defectdesk/defectdesk/pkg/service/enrich"
	"github.com/defectdesk/defectdesk/pkg/service/mediagate"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, issuerFlags(&cfg)...)
	flags = append(flags, geminiFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the intake workflow on an interactive console",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg.setupLogger()

			storage, err := cfg.newStorage(ctx)
			if err != nil {
				return err
			}

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			iss, err := cfg.newIssuer(ctx, storage)
			if err != nil {
				return err
			}

			engine := flow.New(flow.Config{
				Store:     repository.NewRecordStore(storage, cfg.basePrefix),
				Issuer:    iss,
				Gate:      mediagate.New(gemini),
				Enricher:  enrich.New(gemini),
				Messenger: &consoleMessenger{out: c.Root().Writer},
			})

			return runConsole(ctx, c.Root().Writer, engine)
		},
	}
}

// consoleMessenger adapts the terminal to the Messenger interface. Media
// references are local file paths; Fetch reads them directly.
type consoleMessenger struct {
	out io.Writer
}

func (m *consoleMessenger) Send(_ context.Context, _ model.ChatID, reply model.Reply) error {
	if reply.Text != "" {
		fmt.Fprintf(m.out, "\n%s\n", reply.Text)
	}
	if reply.Photo != "" || reply.Video != "" {
		fmt.Fprintf(m.out, "  [media] %s\n", reply.URL)
	}
	for _, button := range reply.Keyboard {
		fmt.Fprintf(m.out, "  [%s] :press %s\n", button.Label, button.Payload)
	}
	return nil
}

func (m *consoleMessenger) Fetch(_ context.Context, ref model.MediaRef) ([]byte, error) {
	data, err := os.ReadFile(string(ref))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read media file", goerr.V("path", ref))
	}
	return data, nil
}

// runConsole is the interactive loop. Each input line becomes one chat
// event: plain text as a message, ":press <payload>" as a button press,
// ":photo/:video/:voice <path>" as media.
func runConsole(ctx context.Context, out io.Writer, engine *flow.Engine) error {
	rl, err := readline.New("you> ")
	if err != nil {
		return goerr.Wrap(err, "failed to open console")
	}
	defer rl.Close()

	chat := model.ChatID("console")
	user := model.UserID("console-user")

	fmt.Fprintln(out, "Defect intake console. Send /start for help, 'exit' to quit.")

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return goerr.Wrap(err, "failed to read console input")
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		ev, err := parseConsoleLine(chat, user, line)
		if err != nil {
			fmt.Fprintf(out, "error: %s\n", err)
			continue
		}

		sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		sp.Suffix = " processing..."
		sp.Start()
		err = engine.HandleEvent(ctx, ev)
		sp.Stop()
		if err != nil {
			fmt.Fprintf(out, "error: %s\n", err)
		}
	}
}

func parseConsoleLine(chat model.ChatID, user model.UserID, line string) (model.Event, error) {
	ev := model.Event{
		ID:   model.NewEventID(),
		Chat: chat,
		User: user,
	}

	if !strings.HasPrefix(line, ":") {
		ev.Kind = model.EventText
		ev.Text = line
		return ev, nil
	}

	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return ev, goerr.New("missing argument", goerr.V("verb", verb))
	}

	switch verb {
	case ":press":
		ev.Kind = model.EventButton
		ev.Payload = arg
	case ":photo":
		ev.Kind = model.EventPhoto
		ev.Media = model.MediaRef(arg)
	case ":video":
		ev.Kind = model.EventVideo
		ev.Media = model.MediaRef(arg)
	case ":voice":
		ev.Kind = model.EventVoice
		ev.Media = model.MediaRef(arg)
	default:
		return ev, goerr.New("unknown console verb", goerr.V("verb", verb))
	}
	return ev, nil
}
