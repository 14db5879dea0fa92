package feed

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"swarm/internal/logger"
	"swarm/internal/market"

	"github.com/tidwall/gjson"
)

// 消息类型，与撮合端约定一致。
const (
	MsgOrderbooks      = "orderbooks"
	MsgPortfolio       = "portfolio_update"
	MsgNews            = "news"
	MsgInstruments     = "instruments"
	MsgAgentRegistered = "agent_registered"
)

const defaultNewsCapacity = 200

var ErrMalformedMessage = errors.New("feed: malformed message")

// State 保存单个 agent 看到的行情。读写并发安全，实现 decision.MarketView。
type State struct {
	mu          sync.RWMutex
	books       map[int]market.Book
	portfolio   *market.Portfolio
	news        []market.NewsItem
	instruments []market.Instrument
	registered  bool

	newsCap int
	trigger chan struct{}
	nowFn   func() time.Time
	log     logger.Scope
}

type StateOption func(*State)

func WithStateClock(fn func() time.Time) StateOption {
	return func(s *State) {
		if fn != nil {
			s.nowFn = fn
		}
	}
}

// WithNewsCapacity 限制保留的新闻条数，超出后丢弃最旧的。
func WithNewsCapacity(n int) StateOption {
	return func(s *State) {
		if n > 0 {
			s.newsCap = n
		}
	}
}

func WithStateLogScope(scope logger.Scope) StateOption {
	return func(s *State) { s.log = scope }
}

func NewState(opts ...StateOption) *State {
	s := &State{
		books:   make(map[int]market.Book),
		newsCap: defaultNewsCapacity,
		trigger: make(chan struct{}, 1),
		nowFn:   time.Now,
		log:     logger.For("feed"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Trigger 在盘口或新闻更新后可读。单槽通道，连续事件会合并。
func (s *State) Trigger() <-chan struct{} { return s.trigger }

func (s *State) notify() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *State) Snapshot() market.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := market.Snapshot{
		Books:       s.books,
		Portfolio:   s.portfolio,
		Instruments: s.instruments,
		TakenAt:     s.nowFn(),
	}
	return snap.Clone()
}

func (s *State) News(n int) []market.NewsItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || len(s.news) == 0 {
		return nil
	}
	start := len(s.news) - n
	if start < 0 {
		start = 0
	}
	return append([]market.NewsItem(nil), s.news[start:]...)
}

func (s *State) HasBooks() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books) > 0
}

func (s *State) InstrumentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.instruments)
}

func (s *State) Registered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registered
}

// Apply 解析一条推送消息并更新状态。未知类型直接忽略。
func (s *State) Apply(raw []byte) error {
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("%w: invalid json", ErrMalformedMessage)
	}
	msg := gjson.ParseBytes(raw)
	typ := msg.Get("type").String()
	switch typ {
	case MsgOrderbooks:
		n := s.applyBooks(msg.Get("data"))
		s.log.Debugf("orderbook update: %d instruments", n)
		if n > 0 {
			s.notify()
		}
	case MsgPortfolio:
		s.applyPortfolio(msg)
	case MsgNews:
		if s.applyNews(msg.Get("data")) {
			s.notify()
		}
	case MsgInstruments:
		s.applyInstruments(msg.Get("data"))
	case MsgAgentRegistered:
		s.mu.Lock()
		s.registered = true
		s.mu.Unlock()
		s.log.Infof("registration confirmed")
	case "":
		return fmt.Errorf("%w: missing type", ErrMalformedMessage)
	default:
		s.log.Debugf("ignore message type=%s", typ)
	}
	return nil
}

// applyBooks 按标的合并盘口，未出现在本次推送里的标的保持原样。
func (s *State) applyBooks(data gjson.Result) int {
	if !data.IsObject() {
		return 0
	}
	now := s.nowFn()
	updates := make(map[int]market.Book)
	data.ForEach(func(key, value gjson.Result) bool {
		id, err := strconv.Atoi(key.String())
		if err != nil || id <= 0 {
			return true
		}
		updates[id] = market.Book{
			InstrumentID: id,
			Bids:         parseLevels(value.Get("bids")),
			Asks:         parseLevels(value.Get("asks")),
			UpdatedAt:    now,
		}
		return true
	})
	if len(updates) == 0 {
		return 0
	}
	s.mu.Lock()
	for id, b := range updates {
		s.books[id] = b
	}
	s.mu.Unlock()
	return len(updates)
}

func parseLevels(v gjson.Result) []market.Level {
	arr := v.Array()
	if len(arr) == 0 {
		return nil
	}
	out := make([]market.Level, 0, len(arr))
	for _, lv := range arr {
		out = append(out, market.Level{
			Price:    lv.Get("price").Float(),
			Quantity: lv.Get("quantity").Float(),
		})
	}
	return out
}

func (s *State) applyPortfolio(msg gjson.Result) {
	p := &market.Portfolio{
		Cash:       msg.Get("cash").Float(),
		TotalValue: msg.Get("total_value").Float(),
		PnL:        msg.Get("pnl").Float(),
		Positions:  make(map[int]market.Position),
		UpdatedAt:  s.nowFn(),
	}
	msg.Get("positions").ForEach(func(key, value gjson.Result) bool {
		id, err := strconv.Atoi(key.String())
		if err != nil {
			return true
		}
		p.Positions[id] = market.Position{
			Quantity: int(value.Get("quantity").Int()),
			AvgPrice: value.Get("avg_price").Float(),
		}
		return true
	})
	s.mu.Lock()
	s.portfolio = p
	s.mu.Unlock()
}

func (s *State) applyNews(data gjson.Result) bool {
	if !data.IsObject() {
		return false
	}
	item := market.NewsItem{
		ID:          data.Get("news_id").String(),
		Title:       data.Get("title").String(),
		Content:     data.Get("content").String(),
		Impact:      data.Get("impact").String(),
		PublishedAt: s.nowFn(),
	}
	if ins := data.Get("instrument_id"); ins.Exists() && ins.Type == gjson.Number {
		id := int(ins.Int())
		item.InstrumentID = &id
	}
	s.mu.Lock()
	s.news = append(s.news, item)
	if over := len(s.news) - s.newsCap; over > 0 {
		s.news = append([]market.NewsItem(nil), s.news[over:]...)
	}
	s.mu.Unlock()
	return true
}

func (s *State) applyInstruments(data gjson.Result) {
	arr := data.Array()
	out := make([]market.Instrument, 0, len(arr))
	for _, v := range arr {
		out = append(out, market.Instrument{
			ID:           int(v.Get("symbol_id").Int()),
			Ticker:       v.Get("ticker").String(),
			Description:  v.Get("description").String(),
			Industry:     v.Get("industry").String(),
			InitialPrice: v.Get("initial_price").Float(),
		})
	}
	s.mu.Lock()
	s.instruments = out
	s.mu.Unlock()
}
