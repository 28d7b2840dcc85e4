package plan

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
)

// Ошибки шаблонов плана.
var (
	ErrTemplateParse  = errors.New("plan template parse error")
	ErrTemplateRender = errors.New("plan template render error")
)

// Vars — значения для подстановки в шаблон плана (--var key=value).
type Vars map[string]string

// templateContext — данные, доступные в шаблоне:
//
//	{{ .Vars.source }}
//	{{ .Env.TARGET_ORG }}
type templateContext struct {
	Vars Vars
	Env  map[string]string
}

var templateFuncs = template.FuncMap{
	// default — значение по умолчанию для пустой строки
	"default": func(def, val string) string {
		if val == "" {
			return def
		}
		return val
	},

	// required — ошибка рендеринга, если значение пустое
	"required": func(name, val string) (string, error) {
		if val == "" {
			return "", fmt.Errorf("%s is required", name)
		}
		return val, nil
	},

	"lower": strings.ToLower,
	"upper": strings.ToUpper,
	"trim":  strings.TrimSpace,
}

// Render подставляет Vars и переменные окружения в текст плана.
// Текст без {{ возвращается как есть.
func Render(data []byte, vars Vars) ([]byte, error) {
	if !bytes.Contains(data, []byte("{{")) {
		return data, nil
	}

	t, err := template.New("plan").Funcs(templateFuncs).Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplateParse, err)
	}

	if vars == nil {
		vars = Vars{}
	}
	ctx := templateContext{Vars: vars, Env: environ()}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplateRender, err)
	}
	return buf.Bytes(), nil
}

// ParseVars разбирает пары key=value.
func ParseVars(pairs []string) (Vars, error) {
	vars := make(Vars, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q: expected key=value", pair)
		}
		vars[key] = value
	}
	return vars, nil
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			env[key] = value
		}
	}
	return env
}
