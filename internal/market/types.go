package market

import (
	"sort"
	"time"
)

// Level 是盘口的一档（价格、挂单量）。
type Level struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// Book 是单个标的的盘口快照，Bids/Asks 均按最优价在前排列。
type Book struct {
	InstrumentID int       `json:"instrument_id"`
	Bids         []Level   `json:"bids"`
	Asks         []Level   `json:"asks"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (b Book) BestBid() (float64, bool) { return best(b.Bids) }
func (b Book) BestAsk() (float64, bool) { return best(b.Asks) }

func best(levels []Level) (float64, bool) {
	if len(levels) == 0 || levels[0].Price <= 0 {
		return 0, false
	}
	return levels[0].Price, true
}

// Mid 双边都有报价时取中间价，只有一边时退化为该边最优价。
func (b Book) Mid() (float64, bool) {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	switch {
	case okBid && okAsk:
		return (bid + ask) / 2, true
	case okBid:
		return bid, true
	case okAsk:
		return ask, true
	default:
		return 0, false
	}
}

func (b Book) clone() Book {
	out := b
	out.Bids = append([]Level(nil), b.Bids...)
	out.Asks = append([]Level(nil), b.Asks...)
	return out
}

type Position struct {
	Quantity int     `json:"quantity"`
	AvgPrice float64 `json:"avg_price"`
}

type Portfolio struct {
	Cash       float64          `json:"cash"`
	TotalValue float64          `json:"total_value"`
	PnL        float64          `json:"pnl"`
	Positions  map[int]Position `json:"positions"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Populated 表示是否已经收到过交易所推送的持仓快照。
func (p *Portfolio) Populated() bool {
	return p != nil && !p.UpdatedAt.IsZero()
}

func (p *Portfolio) clone() *Portfolio {
	if p == nil {
		return nil
	}
	out := *p
	out.Positions = make(map[int]Position, len(p.Positions))
	for k, v := range p.Positions {
		out.Positions[k] = v
	}
	return &out
}

// NewsItem InstrumentID 为 nil 表示面向全市场的广播新闻。
type NewsItem struct {
	ID           string    `json:"news_id"`
	Title        string    `json:"title,omitempty"`
	Content      string    `json:"content"`
	InstrumentID *int      `json:"instrument_id,omitempty"`
	Impact       string    `json:"impact,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
}

func (n NewsItem) Targets(instrumentID int) bool {
	return n.InstrumentID == nil || *n.InstrumentID == instrumentID
}

type Instrument struct {
	ID           int     `json:"symbol_id"`
	Ticker       string  `json:"ticker"`
	Description  string  `json:"description,omitempty"`
	Industry     string  `json:"industry,omitempty"`
	InitialPrice float64 `json:"initial_price,omitempty"`
}

// Snapshot 是一个决策周期观察到的全部行情，Clone 之后与源数据互不影响。
type Snapshot struct {
	Books       map[int]Book
	Portfolio   *Portfolio
	Instruments []Instrument
	TakenAt     time.Time
}

func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Books:       make(map[int]Book, len(s.Books)),
		Portfolio:   s.Portfolio.clone(),
		Instruments: append([]Instrument(nil), s.Instruments...),
		TakenAt:     s.TakenAt,
	}
	for id, b := range s.Books {
		out.Books[id] = b.clone()
	}
	return out
}

// InstrumentIDs 返回有盘口数据的标的，按 id 升序。
func (s Snapshot) InstrumentIDs() []int {
	ids := make([]int, 0, len(s.Books))
	for id := range s.Books {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
