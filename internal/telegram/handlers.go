package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"stockReturnsBot/internal/finance"
)

var (
	// /command[@botname] [args]
	reCommand = regexp.MustCompile(`^/([a-z]+)(?:@[\w_]+)?(?:\s+(.*))?$`)
	// /series SYMBOL
	reSymbol = regexp.MustCompile(`^[A-Za-z0-9\.^_=+-]+$`)
)

const (
	requestTimeout = 45 * time.Second
	seriesPreview  = 10
)

// Sender is the part of the bot API the handlers talk to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Describer narrates a portfolio table.
type Describer interface {
	Describe(ctx context.Context, t *finance.PortfolioTable) (string, error)
}

// Deps are the collaborators shared by every chat.
type Deps struct {
	Source      finance.Source
	Commentator Describer // nil disables /explain
	StoreOpts   []finance.DataStoreOption
	AggOpts     []finance.AggregatorOption
}

// session is the state of one chat. Its commands run one at a time, so a Fetch never
// interleaves with an Allocate on the same store.
type session struct {
	mu    sync.Mutex
	store *finance.DataStore
	last  *finance.PortfolioTable
}

type Handlers struct {
	send Sender
	deps Deps
	log  zerolog.Logger

	mu       sync.Mutex
	sessions map[int64]*session
}

func NewHandlers(send Sender, deps Deps, log zerolog.Logger) *Handlers {
	return &Handlers{
		send:     send,
		deps:     deps,
		log:      log.With().Str("component", "telegram").Logger(),
		sessions: map[int64]*session{},
	}
}

func (h *Handlers) session(chatID int64) *session {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[chatID]
	if !ok {
		s = &session{store: finance.NewDataStore(h.deps.Source, h.log, h.deps.StoreOpts...)}
		h.sessions[chatID] = s
	}
	return s
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	txt := strings.TrimSpace(m.Text)
	g := reCommand.FindStringSubmatch(txt)
	if g == nil {
		return
	}
	chatID := m.Chat.ID
	sess := h.session(chatID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch g[1] {
	case "fetch":
		h.handleFetch(ctx, chatID, sess, txt)
	case "series":
		h.handleSeries(chatID, sess, strings.TrimSpace(g[2]))
	case "port":
		h.handlePort(ctx, chatID, sess, txt)
	case "csv":
		h.handleCSV(chatID, sess)
	case "explain":
		h.handleExplain(ctx, chatID, sess)
	case "help", "start":
		h.handleHelp(chatID)
	}
}

func (h *Handlers) handleFetch(ctx context.Context, chatID int64, sess *session, txt string) {
	symbols, r, err := finance.ParseFetch(txt)
	if err != nil {
		h.reply(chatID, "Usage: /fetch S1 S2 ... START END (dates YYYY-MM-DD). "+errorText(err))
		return
	}
	err = sess.store.Fetch(ctx, symbols, r.From, r.To)
	if err != nil && len(finance.FetchFailures(err)) == 0 {
		h.reply(chatID, "Fetch failed: "+errorText(err))
		return
	}
	// any earlier table no longer matches the store
	sess.last = nil

	var b strings.Builder
	stored := sess.store.Symbols()
	fmt.Fprintf(&b, "Fetched %d of %d symbol(s) for %s", len(stored), len(symbols), r)
	if len(stored) > 0 {
		b.WriteString(": " + strings.Join(stored, ", "))
	}
	for _, f := range finance.FetchFailures(err) {
		fmt.Fprintf(&b, "\nSkipped %s: %v", f.Symbol, f.Err)
	}
	h.reply(chatID, b.String())
}

func (h *Handlers) handleSeries(chatID int64, sess *session, symbol string) {
	if !reSymbol.MatchString(symbol) {
		h.reply(chatID, "Usage: /series SYMBOL")
		return
	}
	symbol = strings.ToUpper(symbol)
	s, ok := sess.store.Get(symbol)
	if !ok {
		h.reply(chatID, fmt.Sprintf("No stored series for %s. Run /fetch first.", symbol))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s • %d rows • %s → %s\n", symbol, s.Len(), s.Start, s.End)
	rows := s.Rows
	if len(rows) > seriesPreview {
		rows = rows[len(rows)-seriesPreview:]
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "%s  %.2f  %s  %s\n", r.Date, r.Close, percent(r.PercentageChange), logText(r.LogReturn))
	}

	img, err := finance.RenderSeriesChart(s)
	if err != nil {
		h.log.Debug().Err(err).Str("symbol", symbol).Msg("series chart skipped")
		h.reply(chatID, b.String())
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: symbol + ".png", Bytes: img})
	photo.Caption = b.String()
	h.sendLogged(photo)
}

func (h *Handlers) handlePort(ctx context.Context, chatID int64, sess *session, txt string) {
	alloc, err := finance.ParseAllocation(txt)
	if err != nil {
		h.reply(chatID, "Usage: /port S1 w1 S2 w2 ... [START END]. "+errorText(err))
		return
	}
	if alloc.HasRange {
		err := sess.store.Fetch(ctx, alloc.Symbols, alloc.Range.From, alloc.Range.To)
		if err != nil && len(finance.FetchFailures(err)) == 0 {
			h.reply(chatID, "Fetch failed: "+errorText(err))
			return
		}
	}

	table, err := finance.NewAggregator(sess.store, h.deps.AggOpts...).Allocate(alloc.Symbols, alloc.Weights)
	if err != nil {
		h.reply(chatID, "Portfolio failed: "+errorText(err))
		return
	}
	sess.last = table

	caption := summaryText(table)
	img, err := finance.RenderPortfolioChart(table)
	if err != nil {
		h.log.Debug().Err(err).Msg("portfolio chart skipped")
		h.reply(chatID, caption)
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: strings.Join(table.Symbols, "_") + "_portfolio.png", Bytes: img})
	photo.Caption = caption
	h.sendLogged(photo)
}

func (h *Handlers) handleCSV(chatID int64, sess *session) {
	if sess.last == nil {
		h.reply(chatID, "No portfolio yet. Run /port first.")
		return
	}
	var buf bytes.Buffer
	if err := sess.last.WriteCSV(&buf); err != nil {
		h.reply(chatID, "CSV failed: "+err.Error())
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: strings.Join(sess.last.Symbols, "_") + "_portfolio.csv", Bytes: buf.Bytes()})
	doc.Caption = fmt.Sprintf("%d rows", sess.last.Len())
	h.sendLogged(doc)
}

func (h *Handlers) handleExplain(ctx context.Context, chatID int64, sess *session) {
	if h.deps.Commentator == nil {
		h.reply(chatID, "Commentary is disabled on this bot.")
		return
	}
	if sess.last == nil {
		h.reply(chatID, "No portfolio yet. Run /port first.")
		return
	}
	out, err := h.deps.Commentator.Describe(ctx, sess.last)
	if err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("commentary failed")
		h.reply(chatID, "Commentary failed: "+err.Error())
		return
	}
	h.reply(chatID, out)
}

func (h *Handlers) handleHelp(chatID int64) {
	help := "Commands\n\n" +
		"- /fetch S1 S2 ... START END - Load daily prices over [START, END), dates YYYY-MM-DD\n" +
		"- /series SYMBOL - Last rows of a loaded series with daily and log returns\n" +
		"- /port S1 w1 S2 w2 ... [START END] - Weighted portfolio of loaded series; with dates, loads them first\n" +
		"- /csv - The last portfolio table as CSV\n" +
		"- /explain - A short description of the last portfolio\n" +
		"\nWeights multiply each close. Combined is the sum of weighted closes, Combined_N is Combined over its first value."
	h.reply(chatID, help)
}

func (h *Handlers) reply(chatID int64, text string) {
	h.sendLogged(tgbotapi.NewMessage(chatID, text))
}

func (h *Handlers) sendLogged(c tgbotapi.Chattable) {
	if _, err := h.send.Send(c); err != nil {
		h.log.Error().Err(err).Msg("telegram send failed")
	}
}

// errorText names the cause of a finance error in user terms.
func errorText(err error) string {
	var (
		shape   *finance.ShapeMismatchError
		missing *finance.MissingSymbolError
		all     *finance.AllSymbolsMissingError
		dup     *finance.DuplicateSymbolError
		weight  *finance.InvalidWeightError
		sum     *finance.WeightSumError
		rng     *finance.InvalidRangeError
	)
	switch {
	case errors.As(err, &shape):
		return fmt.Sprintf("%d symbols but %d weights.", shape.Symbols, shape.Weights)
	case errors.As(err, &missing):
		return fmt.Sprintf("No data loaded for %s. /fetch them first.", strings.Join(missing.Symbols, ", "))
	case errors.As(err, &all):
		return fmt.Sprintf("None of %s is loaded. /fetch them first.", strings.Join(all.Symbols, ", "))
	case errors.As(err, &dup):
		return fmt.Sprintf("%s is listed twice.", dup.Symbol)
	case errors.As(err, &weight):
		return fmt.Sprintf("Weight of %s is not a number.", weight.Symbol)
	case errors.As(err, &sum):
		return fmt.Sprintf("Weights must sum to 1, got %g.", sum.Sum)
	case errors.As(err, &rng):
		return fmt.Sprintf("Start %s is after end %s.", rng.Start, rng.End)
	case errors.Is(err, finance.ErrNoSymbols):
		return "No symbols given."
	case errors.Is(err, context.DeadlineExceeded):
		return "Timed out."
	}
	return err.Error()
}

func summaryText(t *finance.PortfolioTable) string {
	sum := t.Summary()
	parts := make([]string, len(t.Symbols))
	for i, s := range t.Symbols {
		parts[i] = fmt.Sprintf("%s ×%g", s, t.Weights[i])
	}
	return fmt.Sprintf("Portfolio: %s\n%s → %s (%d days)\nCombined %.2f → %.2f\nTotal %s • Last day %s • Last log %s",
		strings.Join(parts, ", "), sum.From, sum.To, sum.Days,
		sum.StartCombined, sum.EndCombined,
		percent(sum.TotalReturn), percent(sum.LastDailyReturn), logText(sum.LastLogReturn))
}

func percent(v float64) string {
	if !finance.Defined(v) {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", v*100)
}

func logText(v float64) string {
	if !finance.Defined(v) {
		return "n/a"
	}
	return fmt.Sprintf("%+.4f", v)
}
