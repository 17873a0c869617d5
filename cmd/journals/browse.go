package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/browser"

	"github.com/TobiSchelling/journals/internal/feed"
	"github.com/TobiSchelling/journals/internal/reader"
)

const browseHelp = `Commands:
  add <url>     load a feed from a URL
  load <path>   load a feed from a file
  list          list loaded items
  select <n>    show the abstract of item n
  open          open the selected article in the browser
  save          save the selected abstract to the reading list
  help          show this help
  quit          leave
`

// prompt runs the interactive session. Views arrive from background
// selections, so all output goes through printf.
type prompt struct {
	in    io.Reader
	store reader.Store
	sess  *reader.Session
	open  func(url string) error

	mu  sync.Mutex
	out io.Writer
}

func newPrompt(in io.Reader, out io.Writer, store reader.Store) *prompt {
	return &prompt{in: in, out: out, store: store, open: browser.OpenURL}
}

func (p *prompt) printf(format string, a ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, a...)
}

// Render prints a resolved selection.
func (p *prompt) Render(v reader.View) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n[%d] %s\n", v.Index+1, v.Item.Title)
	if v.Page != nil && v.Page.SiteName != "" {
		fmt.Fprintf(&sb, "%s\n", v.Page.SiteName)
	}
	fmt.Fprintf(&sb, "%s\n\n%s\n\n", v.Item.Link, v.Text())
	p.printf("%s", sb.String())
}

func (p *prompt) run(ctx context.Context) error {
	p.printf("Type 'help' for commands.\n")
	scanner := bufio.NewScanner(p.in)
	for {
		p.printf("> ")
		if !scanner.Scan() {
			p.printf("\n")
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		cmd, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		arg = strings.TrimSpace(arg)

		switch strings.ToLower(cmd) {
		case "":
		case "add":
			p.report(p.sess.AddFeed(ctx, arg))
		case "load":
			p.report(p.sess.LoadFile(arg))
		case "list", "ls":
			p.list()
		case "select", "s":
			p.selectItem(ctx, arg)
		case "open", "o":
			p.openCurrent()
		case "save":
			p.save(ctx)
		case "help", "?":
			p.printf("%s", browseHelp)
		case "quit", "exit", "q":
			return nil
		default:
			if _, err := strconv.Atoi(cmd); err == nil {
				p.selectItem(ctx, cmd)
				continue
			}
			p.printf("Unknown command %q. Type 'help' for commands.\n", cmd)
		}
	}
}

func (p *prompt) report(n int, err error) {
	if err != nil {
		p.printf("Error: %v\n", err)
		return
	}
	p.printf("Loaded %d items.\n", n)
}

func (p *prompt) list() {
	items := p.sess.Items()
	if len(items) == 0 {
		p.printf("No items loaded.\n")
		return
	}
	current, _ := p.sess.Current()

	var sb strings.Builder
	printItems(&sb, items, current)
	p.printf("%s", sb.String())
}

func (p *prompt) selectItem(ctx context.Context, arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		p.printf("Usage: select <n>\n")
		return
	}
	if _, err := p.sess.Select(ctx, n-1); err != nil {
		p.printf("Error: %v\n", err)
		return
	}
	p.printf("Loading item %d...\n", n)
}

func (p *prompt) openCurrent() {
	link := p.sess.CurrentLink()
	if link == "" {
		p.printf("Nothing selected.\n")
		return
	}
	if err := p.open(link); err != nil {
		p.printf("Could not open browser: %v\n", err)
		return
	}
	p.printf("Opened %s\n", link)
}

func (p *prompt) save(ctx context.Context) {
	index, _ := p.sess.Current()
	if index < 0 {
		p.printf("Nothing selected.\n")
		return
	}

	id, err := p.sess.Save(ctx, p.store, index)
	switch {
	case err != nil:
		p.printf("Error: %v\n", err)
	case id == 0:
		p.printf("Already saved.\n")
	default:
		item, _ := p.sess.Item(index)
		p.printf("Saved [%d]: %s\n", id, item.Title)
	}
}

// printItems writes a numbered item list, marking the current index.
func printItems(w io.Writer, items []feed.Item, current int) {
	for i, it := range items {
		marker := " "
		if i == current {
			marker = ">"
		}
		fmt.Fprintf(w, "%s %3d. %s\n", marker, i+1, it.Title)
		fmt.Fprintf(w, "       %s\n", it.Link)
	}
}
