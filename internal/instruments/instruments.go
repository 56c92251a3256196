// Package instruments holds the catalog of MOEX instruments the bot is
// allowed to trade autonomously. The AI is prompted with this list and any
// directive naming a ticker outside it is dropped during validation.
package instruments

import "sort"

// Instrument describes one tradable MOEX listing.
type Instrument struct {
	FIGI   string
	Ticker string
	Name   string
	Type   string // share, bond
	Sector string
	Lot    int64 // shares per lot
}

var catalog = map[string]Instrument{
	"SBER":    {FIGI: "BBG004730N88", Ticker: "SBER", Name: "Sberbank", Type: "share", Sector: "finance", Lot: 10},
	"VTBR":    {FIGI: "BBG004730ZJ9", Ticker: "VTBR", Name: "VTB Bank", Type: "share", Sector: "finance", Lot: 10000},
	"TCSG":    {FIGI: "BBG00QPYJ5H0", Ticker: "TCSG", Name: "TCS Group", Type: "share", Sector: "finance", Lot: 1},
	"MOEX":    {FIGI: "BBG004730JJ5", Ticker: "MOEX", Name: "Moscow Exchange", Type: "share", Sector: "finance", Lot: 10},
	"GAZP":    {FIGI: "BBG004730RP0", Ticker: "GAZP", Name: "Gazprom", Type: "share", Sector: "energy", Lot: 10},
	"LKOH":    {FIGI: "BBG004731032", Ticker: "LKOH", Name: "Lukoil", Type: "share", Sector: "energy", Lot: 1},
	"ROSN":    {FIGI: "BBG004731354", Ticker: "ROSN", Name: "Rosneft", Type: "share", Sector: "energy", Lot: 1},
	"NVTK":    {FIGI: "BBG00475KKY8", Ticker: "NVTK", Name: "Novatek", Type: "share", Sector: "energy", Lot: 1},
	"HYDR":    {FIGI: "BBG00475K6C3", Ticker: "HYDR", Name: "RusHydro", Type: "share", Sector: "energy", Lot: 1000},
	"GMKN":    {FIGI: "BBG004731489", Ticker: "GMKN", Name: "Nornickel", Type: "share", Sector: "metals", Lot: 1},
	"PLZL":    {FIGI: "BBG000R607Y3", Ticker: "PLZL", Name: "Polyus", Type: "share", Sector: "metals", Lot: 1},
	"YNDX":    {FIGI: "BBG006L8G4H1", Ticker: "YNDX", Name: "Yandex", Type: "share", Sector: "technology", Lot: 1},
	"MTSS":    {FIGI: "BBG004S681W1", Ticker: "MTSS", Name: "MTS", Type: "share", Sector: "telecom", Lot: 10},
	"RTKM":    {FIGI: "BBG004S682Z6", Ticker: "RTKM", Name: "Rostelecom", Type: "share", Sector: "telecom", Lot: 10},
	"MGNT":    {FIGI: "BBG004RVFCY3", Ticker: "MGNT", Name: "Magnit", Type: "share", Sector: "retail", Lot: 1},
	"AFKS":    {FIGI: "BBG004S68614", Ticker: "AFKS", Name: "AFK Sistema", Type: "share", Sector: "holding", Lot: 100},
	"PHOR":    {FIGI: "BBG004S689R0", Ticker: "PHOR", Name: "PhosAgro", Type: "share", Sector: "chemicals", Lot: 1},
	"SU26230": {FIGI: "BBG00P5M77Y3", Ticker: "SU26230", Name: "OFZ-26230", Type: "bond", Sector: "government", Lot: 1},
	"SU26238": {FIGI: "BBG011F7Y7C1", Ticker: "SU26238", Name: "OFZ-26238", Type: "bond", Sector: "government", Lot: 1},
	"SU26242": {FIGI: "BBG013YJ1KT1", Ticker: "SU26242", Name: "OFZ-26242", Type: "bond", Sector: "government", Lot: 1},
}

var byFIGI = func() map[string]Instrument {
	m := make(map[string]Instrument, len(catalog))
	for _, inst := range catalog {
		m[inst.FIGI] = inst
	}
	return m
}()

// ByTicker looks an instrument up by ticker.
func ByTicker(ticker string) (Instrument, bool) {
	inst, ok := catalog[ticker]
	return inst, ok
}

// ByFIGI looks an instrument up by FIGI.
func ByFIGI(figi string) (Instrument, bool) {
	inst, ok := byFIGI[figi]
	return inst, ok
}

// Known reports whether the ticker is in the tradable catalog.
func Known(ticker string) bool {
	_, ok := catalog[ticker]
	return ok
}

// All returns the catalog sorted by ticker.
func All() []Instrument {
	out := make([]Instrument, 0, len(catalog))
	for _, inst := range catalog {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// Tickers returns every catalog ticker sorted.
func Tickers() []string {
	all := All()
	out := make([]string, len(all))
	for i, inst := range all {
		out[i] = inst.Ticker
	}
	return out
}
