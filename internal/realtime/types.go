package realtime

import (
	"time"

	"github.com/wonny/pricecast/internal/contracts"
)

// FrameTypeHistory tags history frames
const FrameTypeHistory = "history"

// HistoryFrame is pushed to live-feed clients after every durable write
// ⭐ SSOT: 실시간 이력 프레임 구조
type HistoryFrame struct {
	Type      string                       `json:"type"`
	Entries   []contracts.PriceObservation `json:"entries"`
	Timestamp time.Time                    `json:"timestamp"`
}
