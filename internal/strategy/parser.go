package strategy

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/ai"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/instruments"
	"github.com/aptomilin/tbank-deepseek-ai-executor-bot/internal/models"
)

// rawDirective is the untrusted wire shape. Everything is optional; fields
// are validated one directive at a time so a single malformed entry never
// poisons the batch.
type rawDirective struct {
	Action       string           `json:"action"`
	Ticker       string           `json:"ticker"`
	Amount       *decimal.Decimal `json:"amount"`
	TargetWeight *decimal.Decimal `json:"target_weight"`
	Rationale    string           `json:"rationale"`
}

type rawResult struct {
	Rationale  string         `json:"rationale"`
	Directives []rawDirective `json:"directives"`
}

// decisionLine matches the degraded plain-text format the model sometimes
// falls back to: "BUY SBER 15000 SHORT_REASON 12.5%".
var decisionLine = regexp.MustCompile(`(?i)^(BUY|SELL|HOLD)\b\s*([A-Z0-9]{3,12})?\s*([\d][\d\s,.]*)?\s*(.*?)\s*$`)

// Parse turns raw model output into validated directives plus the preserved
// rationale. The JSON schema is tried first; when no JSON document parses,
// the line format is scanned. Unparseable entries are discarded, never fatal:
// an entirely unusable response yields zero directives and the raw text as
// rationale.
func Parse(raw string) ([]models.Directive, string) {
	if doc := ai.ExtractJSON(raw); doc != "" {
		var parsed rawResult
		if err := json.Unmarshal([]byte(doc), &parsed); err == nil {
			directives := make([]models.Directive, 0, len(parsed.Directives))
			for _, rd := range parsed.Directives {
				if d, ok := validateDirective(rd); ok {
					directives = append(directives, d)
				}
			}
			rationale := strings.TrimSpace(parsed.Rationale)
			if rationale == "" {
				rationale = strings.TrimSpace(raw)
			}
			return directives, rationale
		}
	}

	return parseLines(raw)
}

func validateDirective(rd rawDirective) (models.Directive, bool) {
	action := models.Action(strings.ToUpper(strings.TrimSpace(rd.Action)))
	ticker := strings.ToUpper(strings.TrimSpace(rd.Ticker))

	d := models.Directive{
		Action:    action,
		Rationale: strings.TrimSpace(rd.Rationale),
	}

	switch action {
	case models.ActionHold:
		d.Ticker = ticker // optional for holds
		return d, true

	case models.ActionBuy, models.ActionSell:
		if !instruments.Known(ticker) {
			return models.Directive{}, false
		}
		if rd.Amount == nil || rd.Amount.IsNegative() || rd.Amount.IsZero() {
			return models.Directive{}, false
		}
		d.Ticker = ticker
		d.Amount = *rd.Amount
		return d, true

	case models.ActionRebalance:
		if !instruments.Known(ticker) {
			return models.Directive{}, false
		}
		if rd.TargetWeight == nil || rd.TargetWeight.IsNegative() ||
			rd.TargetWeight.GreaterThan(decimal.NewFromInt(1)) {
			return models.Directive{}, false
		}
		d.Ticker = ticker
		d.TargetWeight = *rd.TargetWeight
		return d, true
	}

	return models.Directive{}, false
}

func parseLines(raw string) ([]models.Directive, string) {
	var directives []models.Directive
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// The verb and ticker match case-insensitively; the rationale keeps
		// the model's casing.
		m := decisionLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		action := models.Action(strings.ToUpper(m[1]))
		if action == models.ActionHold {
			directives = append(directives, models.Directive{Action: models.ActionHold, Ticker: strings.ToUpper(m[2])})
			continue
		}

		ticker := strings.ToUpper(m[2])
		if !instruments.Known(ticker) {
			continue
		}
		amount, err := decimal.NewFromString(normalizeNumber(m[3]))
		if err != nil || !amount.IsPositive() {
			continue
		}
		directives = append(directives, models.Directive{
			Action:    action,
			Ticker:    ticker,
			Amount:    amount,
			Rationale: strings.TrimSpace(m[4]),
		})
	}
	return directives, strings.TrimSpace(raw)
}

func normalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", "")
	return s
}
