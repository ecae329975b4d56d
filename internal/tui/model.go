package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragchat/internal/citation"
	"ragchat/internal/domain"
	"ragchat/internal/engine"
	"ragchat/internal/index"
	"ragchat/internal/llm"
)

// IndexPort is the TUI-facing subset of the index manager.
type IndexPort interface {
	ExistingFilenames(ctx context.Context) []string
	Drop(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	BuildOrUpdate(ctx context.Context, sourceDir string) (int, error)
}

// tab selects which pipeline the input line drives.
type tab int

const (
	tabQuery tab = iota
	tabChat
)

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	session *engine.Session
	index   IndexPort

	responseMode domain.ResponseMode
	chatMode     domain.ChatMode
	topK         int

	input       textinput.Model
	viewport    viewport.Model
	active      tab
	status      string
	summary     string
	busy        bool
	ready       bool
	confirmWipe bool
	addingDocs  bool

	// lastBatch skips a no-op reindex when an identical upload line is
	// resubmitted; known filters out documents already ingested this
	// session. The collection metadata stays authoritative either way.
	lastBatch []domain.DocumentID
	known     []domain.DocumentID

	transcript string
	stream     *llm.Stream
	sources    []citation.Record
	answer     string
}

// New creates a new TUI model instance.
func New(session *engine.Session, index IndexPort, summary string,
	responseMode domain.ResponseMode, chatMode domain.ChatMode, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		session:      session,
		index:        index,
		responseMode: responseMode,
		chatMode:     chatMode,
		topK:         topK,
		input:        ti,
		viewport:     vp,
		summary:      summary,
		status:       "Ready. Tab switches query/chat, ctrl+o adds documents, ctrl+l lists them, ctrl+r resets chat.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

type queryDoneMsg struct {
	answer  string
	sources []citation.Record
}

type chatStartedMsg struct {
	stream  *llm.Stream
	sources []citation.Record
}

type chatFragmentMsg struct{ text string }

type ingestDoneMsg struct {
	batch   []domain.DocumentID
	added   int
	skipped bool
}

type chatDoneMsg struct{}

type errMsg struct{ err error }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 3 + qh + 1 // header, summary, status, input frame, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.content())
		return m, nil

	case queryDoneMsg:
		m.busy = false
		m.answer = msg.answer
		m.sources = msg.sources
		m.status = fmt.Sprintf("Done. %d source(s).", len(msg.sources))
		m.viewport.SetContent(m.content())
		return m, nil

	case chatStartedMsg:
		m.stream = msg.stream
		m.sources = msg.sources
		return m, readFragment(m.stream)

	case ingestDoneMsg:
		m.busy = false
		m.lastBatch = msg.batch
		m.known = mergeIdentities(m.known, msg.batch)
		switch {
		case msg.skipped:
			m.status = "Upload batch unchanged, nothing to do."
		case msg.added == 0:
			m.status = "No new documents to index."
		default:
			m.status = fmt.Sprintf("Indexed %d new document(s).", msg.added)
		}
		return m, nil

	case chatFragmentMsg:
		m.transcript += msg.text
		m.viewport.SetContent(m.content())
		m.viewport.GotoBottom()
		return m, readFragment(m.stream)

	case chatDoneMsg:
		m.busy = false
		m.stream = nil
		m.transcript += "\n\n"
		m.status = "Ready."
		m.viewport.SetContent(m.content())
		return m, nil

	case errMsg:
		m.busy = false
		m.stream = nil
		m.status = "Error: " + msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "tab":
			if m.active == tabQuery {
				m.active = tabChat
			} else {
				m.active = tabQuery
			}
			if !m.addingDocs {
				m.input.Placeholder = placeholderFor(m.active)
			}
			m.viewport.SetContent(m.content())
			return m, nil
		case "ctrl+o":
			m.addingDocs = !m.addingDocs
			if m.addingDocs {
				m.input.Placeholder = "File paths to index (space separated)"
				m.status = "Add documents: enter paths, or ctrl+o to cancel."
			} else {
				m.input.Placeholder = placeholderFor(m.active)
				m.status = "Ready."
			}
			return m, nil
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.SetValue("")
			m.busy = true
			m.status = "Working..."
			if m.addingDocs {
				m.addingDocs = false
				m.input.Placeholder = placeholderFor(m.active)
				return m, m.runIngest(strings.Fields(text))
			}
			if m.active == tabQuery {
				return m, m.runQuery(text)
			}
			m.transcript += "You: " + text + "\n\nAssistant: "
			m.viewport.SetContent(m.content())
			return m, m.startChat(text)
		case "ctrl+l":
			names := m.index.ExistingFilenames(context.Background())
			if len(names) == 0 {
				m.status = "No documents indexed."
			} else {
				m.status = "Indexed: " + strings.Join(names, ", ")
			}
			return m, nil
		case "ctrl+r":
			if err := m.session.ResetChat(context.Background()); err != nil {
				m.status = "Error: " + err.Error()
			} else {
				m.transcript = ""
				m.status = "Chat history cleared."
				m.viewport.SetContent(m.content())
			}
			return m, nil
		case "ctrl+w":
			// Dropping the collection is unrecoverable, so ask twice.
			if !m.confirmWipe {
				m.confirmWipe = true
				m.status = "This deletes the whole knowledge base. Press ctrl+w again to confirm."
				return m, nil
			}
			m.confirmWipe = false
			if err := m.index.Drop(context.Background()); err != nil {
				m.status = "Error clearing knowledge base: " + err.Error()
			} else {
				m.status = "Knowledge base cleared."
				m.answer = ""
				m.sources = nil
				m.viewport.SetContent(m.content())
			}
			return m, nil
		}
		m.confirmWipe = false
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func placeholderFor(active tab) string {
	if active == tabChat {
		return "Chat with your documents"
	}
	return "Ask about your documents"
}

// runIngest reads the given files and indexes the ones not ingested yet.
// The batch comparison only short-circuits obvious no-ops; BuildOrUpdate
// still deduplicates against the collection metadata.
func (m Model) runIngest(paths []string) tea.Cmd {
	lastBatch := m.lastBatch
	known := m.known
	return func() tea.Msg {
		docs, err := index.ReadDocuments(paths)
		if err != nil {
			return errMsg{err}
		}
		batch := make([]domain.DocumentID, len(docs))
		for i, doc := range docs {
			batch[i] = doc.Identity()
		}
		if !index.BatchChanged(lastBatch, batch) {
			return ingestDoneMsg{batch: batch, skipped: true}
		}
		freshIDs := index.DetectNew(batch, known)
		if len(freshIDs) == 0 {
			return ingestDoneMsg{batch: batch}
		}
		fresh := make([]domain.Document, 0, len(freshIDs))
		wanted := make(map[domain.DocumentID]struct{}, len(freshIDs))
		for _, id := range freshIDs {
			wanted[id] = struct{}{}
		}
		for _, doc := range docs {
			if _, ok := wanted[doc.Identity()]; ok {
				fresh = append(fresh, doc)
			}
		}
		dir, err := index.StageUploads(fresh)
		if err != nil {
			return errMsg{err}
		}
		defer os.RemoveAll(dir)
		added, err := m.index.BuildOrUpdate(context.Background(), dir)
		if err != nil {
			return errMsg{err}
		}
		return ingestDoneMsg{batch: batch, added: added}
	}
}

func mergeIdentities(known, batch []domain.DocumentID) []domain.DocumentID {
	seen := make(map[domain.DocumentID]struct{}, len(known))
	for _, id := range known {
		seen[id] = struct{}{}
	}
	for _, id := range batch {
		if _, ok := seen[id]; !ok {
			known = append(known, id)
			seen[id] = struct{}{}
		}
	}
	return known
}

func (m Model) runQuery(query string) tea.Cmd {
	return func() tea.Msg {
		qe, err := m.session.QueryEngine(m.responseMode, m.topK)
		if err != nil {
			return errMsg{err}
		}
		resp, err := qe.Query(context.Background(), query)
		if err != nil {
			return errMsg{err}
		}
		return queryDoneMsg{answer: resp.Answer, sources: citation.FromResults(resp.Sources)}
	}
}

func (m Model) startChat(message string) tea.Cmd {
	return func() tea.Msg {
		ce, err := m.session.ChatEngine(m.chatMode, m.topK)
		if err != nil {
			return errMsg{err}
		}
		stream, sources, err := ce.Chat(context.Background(), message)
		if err != nil {
			return errMsg{err}
		}
		return chatStartedMsg{stream: stream, sources: citation.FromResults(sources)}
	}
}

func readFragment(stream *llm.Stream) tea.Cmd {
	return func() tea.Msg {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return chatDoneMsg{}
		}
		if err != nil {
			return errMsg{err}
		}
		return chatFragmentMsg{text: fragment}
	}
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := "Query engine"
	if m.active == tabChat {
		title = "Chat engine"
	}
	header := lipgloss.NewStyle().Bold(true).Render("RAG Chat | " + title)
	summary := summaryStyle.Render(m.summary)
	body := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + summary + "\n" + body + "\n" + input + "\n" + status
}

func (m Model) content() string {
	if m.active == tabChat {
		if m.transcript == "" {
			return "No messages yet."
		}
		return m.transcript
	}
	if m.answer == "" && len(m.sources) == 0 {
		return "No results yet."
	}
	var b strings.Builder
	b.WriteString(m.answer)
	if len(m.sources) > 0 {
		b.WriteString("\n\n")
		b.WriteString(sourcesHeaderStyle.Render("Sources"))
		b.WriteString("\n")
		for _, rec := range m.sources {
			b.WriteString(fmt.Sprintf("%2d. [%s] %s (page %s)\n    %s\n",
				rec.Position, rec.Score, rec.Filename, rec.Page, rec.Excerpt))
		}
	}
	return b.String()
}

var (
	resultBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	summaryStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	sourcesHeaderStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)
