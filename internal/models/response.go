package models

import (
	"net/http"

	"inspector.onebusaway.org/internal/clock"
)

// ResponseModel is the envelope every JSON endpoint answers with.
type ResponseModel struct {
	Code        int    `json:"code"`
	CurrentTime int64  `json:"currentTime"`
	Data        any    `json:"data,omitempty"`
	Text        string `json:"text"`
	Version     int    `json:"version"`
}

// ResponseVersion is the envelope version.
const ResponseVersion = 1

func ResponseCurrentTime(c clock.Clock) int64 {
	if c == nil {
		return clock.RealClock{}.NowUnixMilli()
	}
	return c.NowUnixMilli()
}

func NewOKResponse(data any, c clock.Clock) ResponseModel {
	return ResponseModel{
		Code:        http.StatusOK,
		CurrentTime: ResponseCurrentTime(c),
		Data:        data,
		Text:        "OK",
		Version:     ResponseVersion,
	}
}

// NewListResponse wraps list under data.list.
func NewListResponse[T any](list []T, c clock.Clock) ResponseModel {
	if list == nil {
		list = []T{}
	}
	return NewOKResponse(ListData[T]{List: list}, c)
}

type ListData[T any] struct {
	List []T `json:"list"`
}
