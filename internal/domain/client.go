package domain

import (
	"strings"
	"time"
)

// DateLayout задаёт формат даты рождения на границе API.
const DateLayout = "2006-01-02"

// Client описывает карточку посетителя кофейни.
type Client struct {
	ID             int64
	FirstName      string
	LastName       string
	DocumentNumber string
	// BirthDate хранит только дату, время всегда 00:00 UTC.
	BirthDate time.Time
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SameName сравнивает пару имя/фамилия без учёта регистра.
func (c Client) SameName(firstName, lastName string) bool {
	return strings.EqualFold(c.FirstName, firstName) && strings.EqualFold(c.LastName, lastName)
}

// ClientFilter задаёт выборку клиентов. Пустой фильтр означает «все».
type ClientFilter struct {
	ActiveOnly        bool
	FirstNameContains string
	LastNameContains  string
}

// Match проверяет клиента на соответствие фильтру.
func (f ClientFilter) Match(c Client) bool {
	if f.ActiveOnly && !c.Active {
		return false
	}
	if f.FirstNameContains != "" && !ContainsFold(c.FirstName, f.FirstNameContains) {
		return false
	}
	if f.LastNameContains != "" && !ContainsFold(c.LastName, f.LastNameContains) {
		return false
	}
	return true
}

// ContainsFold ищет подстроку без учёта регистра.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
