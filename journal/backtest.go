package journal

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
	"time"
)

// BacktestRun mirrors the backtest_runs table.
type BacktestRun struct {
	RunID     string
	Created   time.Time
	Timeframe string
	Dataset   string

	Instrument string
	Strategy   string
	Config     []byte // engine and strategy config as JSON

	RiskPct float64 // percent of equity, e.g. 1.0

	Start time.Time
	End   time.Time
	Bars  int

	Signals int
	Skipped int
	Trades  int
	Wins    int
	Losses  int

	StartBalance float64
	EndBalance   float64

	NetPL        float64
	ReturnPct    float64
	WinRate      float64
	ProfitFactor *float64
	MaxDD        float64
	MaxDDPct     float64
	Sharpe       *float64

	GitCommit string
	OrgPath   string

	Notes       []string
	NextActions []string
}

var backtestOrgFuncs = template.FuncMap{
	"opt": func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.2f", *v)
	},
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var backtestOrg = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

// Org renders the run, and optionally its trades, as an Org-mode entry.
func (v *BacktestRun) Org(trades []TradeRecord) (string, error) {
	buf := new(bytes.Buffer)
	if err := backtestOrg.Execute(buf, v); err != nil {
		return "", fmt.Errorf("render run %s: %w", v.RunID, err)
	}
	if len(trades) > 0 {
		buf.WriteString("\n")
		buf.WriteString(FormatTradesOrg(trades))
	}
	return buf.String(), nil
}

// WriteBacktestOrg writes the rendered run to OrgPath.
func (v *BacktestRun) WriteBacktestOrg(trades []TradeRecord) error {
	if v.OrgPath == "" {
		return fmt.Errorf("run %s: no org path", v.RunID)
	}
	s, err := v.Org(trades)
	if err != nil {
		return err
	}
	return os.WriteFile(v.OrgPath, []byte(s), 0644)
}

const BacktestOrgTemplate = `* BACKTEST: {{.Strategy}} {{.Instrument}} {{if .Timeframe}}{{.Timeframe}}{{else}}(timeframe?){{end}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{.Strategy}}
:TIMEFRAME:   {{if .Timeframe}}{{.Timeframe}}{{else}}(timeframe?){{end}}
:INSTRUMENT:  {{.Instrument}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:BARS:        {{.Bars}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" .WinRate}}
:PROFIT_FAC:  {{opt .ProfitFactor}}
:SHARPE:      {{opt .Sharpe}}
{{- if .GitCommit}}
:GIT_COMMIT:  {{.GitCommit}}
{{- end}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
| Parameter        | Value |
|------------------+-------|
| Config           | {{printf "%s" .Config}} |
| Risk per Trade % | {{printf "%.2f" .RiskPct}} |

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDD}} ({{printf "%.2f" .MaxDDPct}}%)*
- Win Rate:         *{{printf "%.2f" .WinRate}}%*
- Profit Factor:    *{{opt .ProfitFactor}}*
- Sharpe:           *{{opt .Sharpe}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Signals | {{.Signals}} |
| Skipped | {{.Skipped}} |
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}

{{- if .NextActions }}
** Notes / Next Actions
{{- range .NextActions }}
- [ ] {{.}}
{{- end }}
{{- end }}
`
