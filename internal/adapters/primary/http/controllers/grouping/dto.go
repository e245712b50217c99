package grouping

// GroupImagesRequest партия фото на анализ
type GroupImagesRequest struct {
	Images []ImagePayload `json:"images"`
}

// ImagePayload одно фото: миниатюра в base64
type ImagePayload struct {
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
}

// GroupImagesResponse результат разбиения партии на группы
type GroupImagesResponse struct {
	AnalysisID       string              `json:"analysis_id"`
	Groups           []ItemGroupResponse `json:"groups"`
	Method           string              `json:"method"`
	Degraded         bool                `json:"degraded"`
	ImageKeys        []string            `json:"image_keys,omitempty"`
	RemainingCredits int                 `json:"remaining_credits"`
}

// ItemGroupResponse одна группа фото, предположительно одна вещь
type ItemGroupResponse struct {
	Indices       []int   `json:"indices"`
	SuggestedName string  `json:"suggested_name"`
	Confidence    float64 `json:"confidence"`
}
