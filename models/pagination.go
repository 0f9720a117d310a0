package models

// PageMeta описывает постраничный ответ: pages = ceil(total / per_page).
type PageMeta struct {
	Total       int `json:"total"`
	Pages       int `json:"pages"`
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
}

func NewPageMeta(total, page, perPage int) PageMeta {
	pages := 0
	if perPage > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return PageMeta{
		Total:       total,
		Pages:       pages,
		CurrentPage: page,
		PerPage:     perPage,
	}
}
