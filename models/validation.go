package models

import "strings"

// FieldError описывает ошибку валидации одного поля.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

// ValidationError агрегирует ошибки валидации по всем полям запроса,
// а не только первую найденную.
type ValidationError struct {
	Fields []FieldError
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Msg)
	}
	return "ошибка валидации: " + strings.Join(msgs, "; ")
}

// Add добавляет ошибку по указанному полю.
func (e *ValidationError) Add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Msg: msg})
}

// HasErrors сообщает, накоплена ли хотя бы одна ошибка.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}
