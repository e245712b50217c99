package domain

import (
	"time"

	"github.com/google/uuid"
)

// GroupingMethod способ, которым получена разбивка на группы
type GroupingMethod string

const (
	GroupingMethodAI       GroupingMethod = "ai"
	GroupingMethodFallback GroupingMethod = "fallback"
)

// ImageDescriptor одно загруженное фото в рамках запроса анализа
// Index - позиция в исходной последовательности (0-based, стабильна на время запроса)
// Thumbnail - закодированная миниатюра, нужна только AI-группировке
type ImageDescriptor struct {
	Index     int    `json:"index"`
	Thumbnail []byte `json:"thumbnail,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
}

// ItemGroup группа фото, предположительно относящихся к одной вещи
type ItemGroup struct {
	Indices       []int   `json:"indices"`
	SuggestedName string  `json:"suggested_name"`
	Confidence    float64 `json:"confidence"`
}

// GroupingResult итог одного анализа партии фото
// Degraded выставляется, когда последняя группа переполнена сверх номинального
// размера (политика переполнения: ни один индекс не теряется)
type GroupingResult struct {
	AnalysisID uuid.UUID      `json:"analysis_id"`
	Groups     []ItemGroup    `json:"groups"`
	Method     GroupingMethod `json:"method"`
	Degraded   bool           `json:"degraded"`
}

// AnalysisCompletedEvent событие для шины о завершённом анализе
type AnalysisCompletedEvent struct {
	AnalysisID       uuid.UUID      `json:"analysis_id"`
	Identity         string         `json:"identity"`
	ImageCount       int            `json:"image_count"`
	GroupCount       int            `json:"group_count"`
	Method           GroupingMethod `json:"method"`
	RemainingCredits int            `json:"remaining_credits"`
	CompletedAt      time.Time      `json:"completed_at"`
}
