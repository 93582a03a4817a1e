package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docsearch/internal/domain"
	"docsearch/internal/filter"
	"docsearch/internal/service"
)

// SearchPort is the TUI-facing subset of the search service.
type SearchPort interface {
	SemanticSearch(ctx context.Context, query string, topK int, filters filter.Set) ([]domain.SearchResult, error)
	KeywordSearch(keywords []string, topK int) []domain.SearchResult
	AllMetadata() []domain.DocumentMetadata
	RecordFeedback(globalIndex int, value float64) (float64, error)
	Answer(ctx context.Context, question string, results []domain.SearchResult) domain.Answer
}

type searchMode int

const (
	modeSemantic searchMode = iota
	modeKeyword
)

func (m searchMode) String() string {
	if m == modeKeyword {
		return "keyword"
	}
	return "semantic"
}

type answerMsg struct {
	query  string
	answer domain.Answer
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	port      SearchPort
	input     textinput.Model
	viewport  viewport.Model
	results   []domain.SearchResult
	ranked    []domain.SearchResult // semantic results in similarity order, nil after keyword search
	summary   string
	status    string
	cursor    int
	ready     bool
	lastQuery string
	topK      int
	mode      searchMode
	sortIdx   int
	answer    *domain.Answer
	answering bool
	showDocs  bool
}

// New creates a new TUI model instance. topK <= 0 uses the service default.
func New(port SearchPort, summary string, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type query and press Enter (filters: author:alice date:2024)"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		port:     port,
		input:    ti,
		viewport: vp,
		summary:  summary,
		topK:     topK,
		status:   "Loaded. Type to search. tab: mode  ctrl+s: sort  ctrl+y/ctrl+n: feedback  ctrl+a: answer  ctrl+o: documents",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + summary
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.refresh()
		return m, nil
	case answerMsg:
		m.answering = false
		if msg.query != m.lastQuery {
			return m, nil
		}
		m.answer = &msg.answer
		if msg.answer.Err != nil {
			m.status = "Answer failed: " + msg.answer.Err.Error()
		} else {
			m.status = fmt.Sprintf("Answer ready (confidence %.2f). esc: back to results", msg.answer.Confidence)
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if strings.TrimSpace(m.input.Value()) != "" {
				m.search(strings.TrimSpace(m.input.Value()))
				return m, nil
			}
		case "tab":
			if m.mode == modeSemantic {
				m.mode = modeKeyword
			} else {
				m.mode = modeSemantic
			}
			m.status = "Mode: " + m.mode.String()
			return m, nil
		case "ctrl+s":
			m.sortIdx = (m.sortIdx + 1) % len(service.SortKeys)
			m.results = service.SortResults(m.results, m.sortKey())
			m.cursor = 0
			m.status = "Sorted by " + string(m.sortKey())
			m.refresh()
			return m, nil
		case "ctrl+y":
			m.feedback(1.0)
			return m, nil
		case "ctrl+n":
			m.feedback(0.0)
			return m, nil
		case "ctrl+a":
			if m.answering {
				return m, nil
			}
			if len(m.ranked) == 0 {
				if len(m.results) > 0 {
					m.status = "Answers need a semantic search (tab to switch mode)"
				}
				return m, nil
			}
			m.answering = true
			m.status = "Generating answer..."
			return m, m.answerCmd()
		case "ctrl+o":
			m.showDocs = !m.showDocs
			m.refresh()
			return m, nil
		case "esc":
			if m.answer != nil || m.showDocs {
				m.answer = nil
				m.showDocs = false
				m.refresh()
				return m, nil
			}
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.refresh()
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.refresh()
				return m, nil
			}
		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) search(raw string) {
	query, filters := parseQuery(raw)
	if query == "" {
		m.status = "Add search terms to the filters, e.g. author:alice revenue"
		return
	}
	m.answer = nil
	m.showDocs = false
	var (
		res []domain.SearchResult
		err error
	)
	switch m.mode {
	case modeKeyword:
		keywords := service.ParseKeywords(strings.ReplaceAll(query, " ", ","))
		res = m.port.KeywordSearch(keywords, m.topK)
	default:
		res, err = m.port.SemanticSearch(context.Background(), query, m.topK, filters)
	}
	m.ranked = nil
	if err != nil {
		m.status = "Error: " + err.Error()
		m.results = nil
	} else {
		if m.mode == modeSemantic {
			m.ranked = res
		}
		m.results = service.SortResults(res, m.sortKey())
		m.cursor = 0
		m.lastQuery = query
		m.status = fmt.Sprintf("%d %s results for %q", len(res), m.mode, query)
		if len(filters) > 0 && m.mode == modeSemantic {
			m.status += fmt.Sprintf(" with %d filters", len(filters))
		}
	}
	m.refresh()
}

func (m *Model) feedback(value float64) {
	if len(m.results) == 0 {
		return
	}
	r := &m.results[m.cursor]
	score, err := m.port.RecordFeedback(r.Chunk.GlobalIndex, value)
	if err != nil {
		m.status = "Feedback failed: " + err.Error()
		return
	}
	r.Chunk.RelevanceScore = score
	for i := range m.ranked {
		if m.ranked[i].Chunk.GlobalIndex == r.Chunk.GlobalIndex {
			m.ranked[i].Chunk.RelevanceScore = score
		}
	}
	verdict := "helpful"
	if value == 0 {
		verdict = "not helpful"
	}
	m.status = fmt.Sprintf("Marked %s as %s (stored relevance %.3f)", r.Chunk.Title, verdict, score)
	m.refresh()
}

func (m Model) answerCmd() tea.Cmd {
	port := m.port
	query := m.lastQuery
	results := append([]domain.SearchResult(nil), m.ranked...)
	return func() tea.Msg {
		return answerMsg{query: query, answer: port.Answer(context.Background(), query, results)}
	}
}

func (m Model) sortKey() service.SortKey {
	return service.SortKeys[m.sortIdx]
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderBody())
	m.viewport.GotoTop()
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Document Search  [%s | sort: %s]", m.mode, m.sortKey()))
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderBody() string {
	switch {
	case m.showDocs:
		return renderDocuments(m.port.AllMetadata())
	case m.answer != nil:
		return renderAnswer(*m.answer)
	default:
		return m.renderCurrentResult()
	}
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Result %d/%d  score=%.3f  stored=%.3f", m.cursor+1, len(m.results), r.Score, r.Chunk.RelevanceScore)
	meta := metaStyle.Render(fmt.Sprintf("%s  chunk %d/%d  author: %s  date: %s  location: %s",
		r.Chunk.Title, r.Chunk.LocalChunkID+1, r.Chunk.TotalChunks,
		orDash(r.Chunk.Author), orDash(r.Chunk.Date), orDash(r.Chunk.Location)))
	body := highlightBestSentence(r.Chunk.ChunkText, m.lastQuery)
	return title + "\n" + meta + "\n\n" + body
}

func renderAnswer(a domain.Answer) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Answer"))
	b.WriteString("\n\n")
	b.WriteString(a.Text)
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Confidence: %.2f\n", a.Confidence))
	for i, s := range a.Sources {
		b.WriteString(metaStyle.Render(fmt.Sprintf("\n[%d] %s by %s (%s) score=%.3f", i+1, s.Title, s.Author, s.Date, s.RelevanceScore)))
		b.WriteString("\n")
		b.WriteString(s.ChunkText)
		b.WriteString("\n")
	}
	return b.String()
}

func renderDocuments(docs []domain.DocumentMetadata) string {
	if len(docs) == 0 {
		return "No documents ingested."
	}
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d documents", len(docs))))
	b.WriteString("\n")
	for _, d := range docs {
		b.WriteString(fmt.Sprintf("\n%s  (%d chunks)\n", d.Title, d.TotalChunks))
		b.WriteString(metaStyle.Render(fmt.Sprintf("  author: %s  date: %s  location: %s", orDash(d.Author), orDash(d.Date), orDash(d.Location))))
		b.WriteString("\n")
	}
	return b.String()
}

// parseQuery splits field:value filter terms off the query. Values may be
// double-quoted to include spaces. Unknown fields stay part of the query.
func parseQuery(raw string) (string, filter.Set) {
	pairs := make(map[string]string)
	var words []string
	for _, tok := range splitQuoted(raw) {
		field, value, ok := strings.Cut(tok, ":")
		if ok && isFilterField(strings.ToLower(field)) && value != "" {
			pairs[strings.ToLower(field)] = strings.Trim(value, `"`)
			continue
		}
		words = append(words, strings.Trim(tok, `"`))
	}
	return strings.Join(words, " "), filter.New(pairs)
}

func isFilterField(name string) bool {
	for _, f := range filter.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// splitQuoted splits on whitespace outside double quotes.
func splitQuoted(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case !inQuote && (r == ' ' || r == '\t' || r == '\n'):
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	metaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	var sentences []string
	end := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		sentences = append(sentences, strings.TrimSpace(text[loc[0]:loc[1]]))
		end = loc[1]
	}
	// word windows often stop mid-sentence
	if rest := strings.TrimSpace(text[end:]); rest != "" {
		sentences = append(sentences, rest)
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
