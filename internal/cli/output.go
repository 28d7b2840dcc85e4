package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shaiso/metamigrate/internal/domain"
)

// Output печатает ответы сервера: для человека таблицами,
// в режиме --json как есть.
//
// Данные идут в w, уведомления и статусные строки в errW,
// чтобы вывод --json оставался разбираемым.
type Output struct {
	jsonMode bool
	w        io.Writer
	errW     io.Writer
}

// NewOutput создаёт Output поверх stdout/stderr.
func NewOutput(jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        os.Stdout,
		errW:     os.Stderr,
	}
}

// --- Views ---

// Environments выводит подключённые окружения.
func (o *Output) Environments(envs []domain.Environment) {
	if o.jsonMode {
		o.JSON(envs)
		return
	}
	rows := make([][]string, len(envs))
	for i, e := range envs {
		rows[i] = []string{e.ID, e.Label}
	}
	o.table([]string{"id", "label"}, rows)
}

// Session выводит накопленные уведомления и состояние сессии.
func (o *Output) Session(s *SessionResponse) {
	for _, n := range s.Notifications {
		o.Notification(n)
	}
	if o.jsonMode {
		o.JSON(s)
		return
	}

	st := s.State
	o.fields([][2]string{
		{"Session", s.ID},
		{"Step", fmt.Sprintf("%d %s", st.Step, st.StepName)},
		{"Source", orDash(st.Source)},
		{"Target", orDash(st.Target)},
		{"Types", orDash(strings.Join(st.SelectedTypes, ", "))},
		{"Components", strconv.Itoa(st.Selection.Count())},
		{"Can advance", strconv.FormatBool(st.CanAdvance)},
		{"Operation", operationSummary(s.Operation)},
	})
}

// Descriptors выводит компоненты, загруженные на шаге 2.
func (o *Output) Descriptors(rows []domain.MetadataDescriptor) {
	if o.jsonMode {
		o.JSON(rows)
		return
	}
	table := make([][]string, len(rows))
	for i, r := range rows {
		table[i] = []string{r.Type, r.FullName, orDash(r.CreatedByName), orDash(r.LastModifiedByName)}
	}
	o.table([]string{"type", "name", "created_by", "modified_by"}, table)
}

// Deployments выводит журнал деплоев.
func (o *Output) Deployments(records []DeploymentResponse) {
	if o.jsonMode {
		o.JSON(records)
		return
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			r.ID, r.Source, r.Target, strconv.Itoa(r.Components),
			deploymentResult(r), r.StartedAt.Format(time.RFC3339),
		}
	}
	o.table([]string{"id", "source", "target", "components", "result", "started"}, rows)
}

// Deployment выводит одну запись журнала вместе с выбором.
func (o *Output) Deployment(r *DeploymentResponse) {
	if o.jsonMode {
		o.JSON(r)
		return
	}
	o.fields([][2]string{
		{"ID", r.ID},
		{"Session", orDash(r.SessionID)},
		{"Job", orDash(r.JobID)},
		{"Source", r.Source},
		{"Target", r.Target},
		{"Result", deploymentResult(*r)},
		{"Started", r.StartedAt.Format(time.RFC3339)},
		{"Duration", (time.Duration(r.DurationMs) * time.Millisecond).String()},
	})
	fmt.Fprintln(o.w)
	o.Selection(r.Selection)
}

// Selection выводит выбор по типам. Порядок типов стабильный.
func (o *Output) Selection(set domain.SelectionSet) {
	rows := make([][]string, 0, len(set))
	for _, typ := range set.Types() {
		rows = append(rows, []string{typ, strings.Join(set[typ], ", ")})
	}
	o.table([]string{"type", "components"}, rows)
}

// JSON выводит v с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Notification выводит уведомление визарда.
func (o *Output) Notification(n domain.Notification) {
	fmt.Fprintf(o.errW, "[%s] %s %s\n", n.Severity, n.Title, n.Message)
}

// Status выводит статусную строку.
func (o *Output) Status(format string, args ...any) {
	fmt.Fprintf(o.errW, format+"\n", args...)
}

// --- Layout ---

// table печатает колонки, выровненные tabwriter. Заголовки в верхнем регистре.
func (o *Output) table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(headers, "\t")))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

// fields печатает пары "ключ: значение" с выровненными значениями.
func (o *Output) fields(pairs [][2]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 1, ' ', 0)
	for _, p := range pairs {
		fmt.Fprintf(tw, "%s:\t%s\n", p[0], p[1])
	}
	tw.Flush()
}

func operationSummary(op *OperationResponse) string {
	switch {
	case op == nil:
		return "-"
	case op.Running():
		return op.Name + " (running)"
	case op.Error != "":
		return op.Name + " (failed: " + op.Error + ")"
	default:
		return op.Name + " (done)"
	}
}

func deploymentResult(r DeploymentResponse) string {
	switch {
	case r.Success:
		return "SUCCESS"
	case r.Error != "":
		return "FAILED: " + r.Error
	case r.Status != "":
		return "FAILED: " + r.Status
	default:
		return "FAILED"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
