package services

import (
	"fmt"
	"time"
)

// Префиксы деловых номеров. Формат единый: префикс, дата yyyyMMdd и
// четырёхзначный суточный порядковый номер.
const (
	orderNumberPrefix    = "PO"
	scheduleNumberPrefix = "PS"
	batchNumberPrefix    = "PB"
)

func formatDailyNumber(prefix string, day time.Time, sequence int) string {
	return fmt.Sprintf("%s%s%04d", prefix, day.Format("20060102"), sequence)
}
