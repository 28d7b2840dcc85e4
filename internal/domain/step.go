package domain

// Step — шаг визарда миграции.
//
//	SelectOrgs → SelectMetadata → ReviewAndDeploy
type Step int

const (
	// StepSelectOrgs — выбор source и target окружений.
	StepSelectOrgs Step = iota + 1

	// StepSelectMetadata — выбор типов и компонентов метаданных.
	StepSelectMetadata

	// StepReviewAndDeploy — проверка и деплой.
	StepReviewAndDeploy
)

// String возвращает имя шага.
func (s Step) String() string {
	switch s {
	case StepSelectOrgs:
		return "select_orgs"
	case StepSelectMetadata:
		return "select_metadata"
	case StepReviewAndDeploy:
		return "review_and_deploy"
	default:
		return "unknown"
	}
}

// Next возвращает следующий шаг. За последним шагом — он сам.
func (s Step) Next() Step {
	if s >= StepReviewAndDeploy {
		return StepReviewAndDeploy
	}
	return s + 1
}

// Previous возвращает предыдущий шаг. Перед первым шагом — он сам.
func (s Step) Previous() Step {
	if s <= StepSelectOrgs {
		return StepSelectOrgs
	}
	return s - 1
}

// IsTerminal возвращает true для последнего шага.
func (s Step) IsTerminal() bool {
	return s == StepReviewAndDeploy
}
