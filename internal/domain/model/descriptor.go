package model

// ParamType — тип параметра операции.
type ParamType string

const (
	ParamInteger  ParamType = "integer"
	ParamString   ParamType = "string"
	ParamPageList ParamType = "page_list"
)

// ParamSpec — описание одного параметра операции.
type ParamSpec struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Required    bool      `json:"required"`
	Default     string    `json:"default,omitempty"`
	Description string    `json:"description"`
}

// OperationDescriptor — статическое описание операции для клиентов.
// Создаётся один раз при старте и не изменяется.
type OperationDescriptor struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Accepts     Category    `json:"accepts"`
	Produces    Category    `json:"produces"`
	Multiple    bool        `json:"multiple"`
	MinFiles    int         `json:"min_files"`
	Params      []ParamSpec `json:"params"`
	// Endpoint — путь отдельного endpoint операции (/api/<endpoint>)
	Endpoint string `json:"endpoint"`
	// Available — все внешние инструменты операции найдены при старте
	Available bool `json:"available"`
	// Suffix — суффикс, добавляемый к имени входного файла
	Suffix string `json:"-"`
	// Message — текст успешного ответа
	Message string `json:"-"`
}

// Param возвращает описание параметра по имени.
func (d *OperationDescriptor) Param(name string) (ParamSpec, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}
