package domain

import "strings"

// Environment — подключённое внешнее окружение (org), между которыми
// переносятся метаданные.
//
// Environment неизменяем после получения списка; живёт одну сессию визарда.
type Environment struct {
	// ID — идентификатор окружения (value в ответе удалённой стороны).
	ID string `json:"value"`

	// Label — человекочитаемое имя.
	Label string `json:"label"`
}

// EnvironmentCredentials — данные для регистрации нового окружения
// (client credentials flow).
type EnvironmentCredentials struct {
	Label        string `json:"label" yaml:"label"`
	BaseURL      string `json:"baseUrl" yaml:"base_url"`
	ClientID     string `json:"clientId" yaml:"client_id"`
	ClientSecret string `json:"clientSecret" yaml:"client_secret"`
}

// Validate проверяет, что все поля заполнены.
func (c EnvironmentCredentials) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"label", c.Label},
		{"base_url", c.BaseURL},
		{"client_id", c.ClientID},
		{"client_secret", c.ClientSecret},
	}

	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return NewValidationError(f.name, f.name+" is required")
		}
	}
	return nil
}

// FindEnvironment ищет окружение по ID.
func FindEnvironment(envs []Environment, id string) (Environment, bool) {
	for _, env := range envs {
		if env.ID == id {
			return env, true
		}
	}
	return Environment{}, false
}

// ExcludeEnvironment возвращает все окружения, кроме указанного.
// Пустой id ничего не исключает.
func ExcludeEnvironment(envs []Environment, id string) []Environment {
	out := make([]Environment, 0, len(envs))
	for _, env := range envs {
		if id != "" && env.ID == id {
			continue
		}
		out = append(out, env)
	}
	return out
}
