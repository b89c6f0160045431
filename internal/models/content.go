package models

// ContentSet — именованный набор карточек (тест).
type ContentSet struct {
	ID    int64  `json:"id"`
	Title string `json:"title" validate:"required"`
}

// Card — карточка с лицевой и обратной стороной, принадлежит ровно одному набору.
type Card struct {
	ID            int64   `json:"id"`
	SetID         int64   `json:"set_id" validate:"required"`
	FrontText     string  `json:"front_text" validate:"required"`
	FrontImageRef *string `json:"front_image_ref,omitempty"`
	BackText      string  `json:"back_text" validate:"required"`
	BackImageRef  *string `json:"back_image_ref,omitempty"`
}
