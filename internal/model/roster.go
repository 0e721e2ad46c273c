package model

// Employee roster entry
type Employee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Project roster entry
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NameRequest add/rename request body for employees and projects
type NameRequest struct {
	Name string `json:"name" binding:"required"`
}
