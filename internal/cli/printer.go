package cli

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"portal-chat/internal/chat"
	"portal-chat/internal/models"
)

const timeLayout = "15:04:05"

// printer renders conversation events as plain text lines.
type printer struct {
	mu    sync.Mutex
	out   io.Writer
	seen  map[string]bool
	state string
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out, seen: make(map[string]bool)}
}

func (p *printer) Render(event models.ChatEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch event.Type {
	case models.EventHistory:
		for _, m := range event.Messages {
			key := m.ID + "\x00" + m.Text
			if p.seen[key] {
				continue
			}
			p.seen[key] = true
			fmt.Fprintln(p.out, formatMessage(m))
		}
	case models.EventTyping:
		if len(event.Typing) > 0 {
			fmt.Fprintf(p.out, "... %s typing\n", joinRoles(event.Typing))
		}
	case models.EventState:
		if event.State != p.state {
			p.state = event.State
			fmt.Fprintf(p.out, "-- %s %s\n", event.ConversationID, event.State)
		}
	case models.EventError:
		fmt.Fprintf(p.out, "!! %s\n", event.Error)
	}
}

func formatMessage(m models.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", m.CreatedAt.Format(timeLayout), m.SenderRole)
	if m.SenderEmail != "" {
		fmt.Fprintf(&b, " <%s>", m.SenderEmail)
	}
	fmt.Fprintf(&b, ": %s", m.Text)
	if m.Edited {
		b.WriteString(" (edited)")
	}
	fmt.Fprintf(&b, "  #%s", m.ID)
	return b.String()
}

func joinRoles(roles []models.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	if len(names) == 1 {
		return names[0] + " is"
	}
	return strings.Join(names, " and ") + " are"
}

func formatCounts(counts map[string]int) []string {
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	lines := make([]string, len(ids))
	for i, id := range ids {
		lines[i] = fmt.Sprintf("%s\t%d", id, counts[id])
	}
	return lines
}

// promptConfirmer asks on out and reads a yes/no answer from in.
func promptConfirmer(in io.Reader, out io.Writer) chat.Confirmer {
	reader := bufio.NewReader(in)
	return chat.ConfirmFunc(func(prompt string) bool {
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	})
}
