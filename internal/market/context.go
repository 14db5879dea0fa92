package market

// newsLookback 判断 "近期有新闻" 时只看最近的几条。
const newsLookback = 3

// Context 是单个标的在一个决策周期内的归一化视图，按值传递。
type Context struct {
	InstrumentID     int
	BestBid          float64
	BestAsk          float64
	MidPrice         float64
	Spread           float64
	SpreadPct        float64
	PriceChange      float64
	FirstObservation bool
	PositionQty      int
	Cash             float64
	HasRecentNews    bool
	BidDepth         int
	AskDepth         int
}

// CanShort 做空门槛：现金需高于 2.5 倍中间价。
func (c Context) CanShort() bool {
	return c.Cash > 2.5*c.MidPrice
}

// AbsChange 返回价格变动幅度的绝对值。
func (c Context) AbsChange() float64 {
	if c.PriceChange < 0 {
		return -c.PriceChange
	}
	return c.PriceChange
}

type BuildInput struct {
	Snapshot        Snapshot
	News            []NewsItem
	LastMids        map[int]float64
	StartingCapital float64
}

// Build 为每个双边报价有效的标的生成 Context，结果按标的 id 升序。
// 单边或空盘口、买卖价交叉或相等的盘口不产生可交易的 Context。
func Build(in BuildInput) []Context {
	cash := in.StartingCapital
	if in.Snapshot.Portfolio.Populated() {
		cash = in.Snapshot.Portfolio.Cash
	}
	recent := Latest(in.News, newsLookback)

	out := make([]Context, 0, len(in.Snapshot.Books))
	for _, id := range in.Snapshot.InstrumentIDs() {
		book := in.Snapshot.Books[id]
		bid, okBid := book.BestBid()
		ask, okAsk := book.BestAsk()
		if !okBid || !okAsk || ask <= bid {
			continue
		}
		mid := (bid + ask) / 2
		spread := ask - bid
		ctx := Context{
			InstrumentID: id,
			BestBid:      bid,
			BestAsk:      ask,
			MidPrice:     mid,
			Spread:       spread,
			SpreadPct:    spread / mid,
			Cash:         cash,
			BidDepth:     len(book.Bids),
			AskDepth:     len(book.Asks),
		}
		if last, ok := in.LastMids[id]; ok && last > 0 {
			ctx.PriceChange = (mid - last) / last
		} else {
			ctx.FirstObservation = true
		}
		if p := in.Snapshot.Portfolio; p != nil {
			ctx.PositionQty = p.Positions[id].Quantity
		}
		for _, n := range recent {
			if n.Targets(id) {
				ctx.HasRecentNews = true
				break
			}
		}
		out = append(out, ctx)
	}
	return out
}

// MidPrices 提取每个标的的中间价，单边盘口也计入，供显著性判断使用。
func MidPrices(books map[int]Book) map[int]float64 {
	out := make(map[int]float64, len(books))
	for id, b := range books {
		if mid, ok := b.Mid(); ok {
			out[id] = mid
		}
	}
	return out
}

// Latest 返回最后 n 条新闻（保持原有顺序）。
func Latest(news []NewsItem, n int) []NewsItem {
	if n <= 0 || len(news) <= n {
		return news
	}
	return news[len(news)-n:]
}
