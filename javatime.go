package javaobj

import (
	"encoding/binary"
)

// javaTimeSerClass is the internal helper class every java.time value
// is actually serialized through: its writeReplace method swaps the
// real object for a java.time.Ser carrying a one-byte discriminator
// followed by a type-specific payload.
const javaTimeSerClass = "java.time.Ser"

// java.time.Ser sub-shape discriminators, one per serializable
// java.time type.
const (
	timeDuration = iota + 1
	timeInstant
	timeLocalDate
	timeLocalTime
	timeLocalDateTime
	timeZonedDateTime
	timeZoneRegion
	timeZoneOffset
	timeOffsetTime
	timeOffsetDateTime
	timeYear
	timeYearMonth
	timeMonthDay
	timePeriod
)

// JavaTime is the carrier for the java.time.Ser wire shape, decoding
// whichever of the 14 sub-shapes its discriminator byte selects.
type JavaTime struct {
	JavaInstance
	SubType int
	Year    int32
	Month   int8
	Day     int8
	Hour    int8
	Minute  int8
	Second  int8
	Seconds int64 // epoch seconds, Duration/Instant only
	Nano    int32
	Offset  int32
	Zone    string

	// Period only: years/months/days are full ints in java.time.Period,
	// unlike the single-byte month/day used by LocalDate and friends.
	PeriodYears  int32
	PeriodMonths int32
	PeriodDays   int32
}

var javaTimeSerClasses = map[string]bool{javaTimeSerClass: true}

func (t *JavaTime) LoadFromInstance() error {
	_, anns, ok := t.firstAncestorNamed(javaTimeSerClasses)
	if !ok || len(anns) == 0 {
		return nil
	}
	block, ok := anns[0].(*BlockData)
	if !ok || len(block.Data) == 0 {
		return nil
	}

	data := block.Data
	t.SubType = int(data[0])
	data = data[1:]

	switch t.SubType {
	case timeDuration, timeInstant:
		data = t.readDurationLike(data)
	case timeLocalDate:
		data = t.readLocalDate(data)
	case timeLocalTime:
		data = t.readLocalTime(data)
	case timeLocalDateTime:
		data = t.readLocalDate(data)
		data = t.readLocalTime(data)
	case timeZonedDateTime:
		data = t.readLocalDate(data)
		data = t.readLocalTime(data)
		data = t.readZoneOffset(data)
		data = t.readZoneRegion(data)
	case timeZoneOffset:
		data = t.readZoneOffset(data)
	case timeZoneRegion:
		data = t.readZoneRegion(data)
	case timeOffsetTime:
		data = t.readLocalTime(data)
		data = t.readZoneOffset(data)
	case timeOffsetDateTime:
		data = t.readLocalDate(data)
		data = t.readLocalTime(data)
		data = t.readZoneOffset(data)
	case timeYear:
		data = t.readYear(data)
	case timeYearMonth:
		data = t.readYearMonth(data)
	case timeMonthDay:
		data = t.readMonthDay(data)
	case timePeriod:
		data = t.readPeriod(data)
	}

	return nil
}

func (t *JavaTime) LoadFromBlockData(_ *Parser, _ *reader) (bool, error) { return true, nil }

// readDurationLike decodes the shared Duration/Instant payload: an
// 8-byte seconds value followed by a 4-byte nanosecond adjustment.
func (t *JavaTime) readDurationLike(data []byte) []byte {
	if len(data) < 12 {
		return data
	}
	t.Seconds = int64(binary.BigEndian.Uint64(data[:8]))
	t.Nano = int32(binary.BigEndian.Uint32(data[8:12]))
	return data[12:]
}

func (t *JavaTime) readLocalDate(data []byte) []byte {
	if len(data) < 6 {
		return data
	}
	t.Year = int32(binary.BigEndian.Uint32(data[:4]))
	t.Month = int8(data[4])
	t.Day = int8(data[5])
	return data[6:]
}

func (t *JavaTime) readLocalTime(data []byte) []byte {
	if len(data) < 1 {
		return data
	}
	hour := int8(data[0])
	data = data[1:]

	var minute, second int8
	var nano int32

	if hour < 0 {
		hour = ^hour
	} else if len(data) >= 1 {
		minute = int8(data[0])
		data = data[1:]
		if minute < 0 {
			minute = ^minute
		} else if len(data) >= 1 {
			second = int8(data[0])
			data = data[1:]
			if second < 0 {
				second = ^second
			} else if len(data) >= 4 {
				nano = int32(binary.BigEndian.Uint32(data[:4]))
				data = data[4:]
			}
		}
	}

	t.Hour = hour
	t.Minute = minute
	t.Second = second
	t.Nano = nano
	return data
}

func (t *JavaTime) readZoneOffset(data []byte) []byte {
	if len(data) < 1 {
		return data
	}
	offsetByte := int8(data[0])
	data = data[1:]
	if offsetByte == 127 {
		if len(data) < 4 {
			return data
		}
		t.Offset = int32(binary.BigEndian.Uint32(data[:4]))
		return data[4:]
	}
	t.Offset = int32(offsetByte) * 900
	return data
}

func (t *JavaTime) readZoneRegion(data []byte) []byte {
	if len(data) < 2 {
		return data
	}
	n := int(binary.BigEndian.Uint16(data[:2]))
	data = data[2:]
	if len(data) < n {
		return data
	}
	zone, err := decodeModifiedUTF8(data[:n])
	if err == nil {
		t.Zone = zone
	}
	return data[n:]
}

func (t *JavaTime) readYear(data []byte) []byte {
	if len(data) < 4 {
		return data
	}
	t.Year = int32(binary.BigEndian.Uint32(data[:4]))
	return data[4:]
}

func (t *JavaTime) readYearMonth(data []byte) []byte {
	if len(data) < 5 {
		return data
	}
	t.Year = int32(binary.BigEndian.Uint32(data[:4]))
	t.Month = int8(data[4])
	return data[5:]
}

func (t *JavaTime) readMonthDay(data []byte) []byte {
	if len(data) < 2 {
		return data
	}
	t.Month = int8(data[0])
	t.Day = int8(data[1])
	return data[2:]
}

func (t *JavaTime) readPeriod(data []byte) []byte {
	if len(data) < 12 {
		return data
	}
	t.PeriodYears = int32(binary.BigEndian.Uint32(data[0:4]))
	t.PeriodMonths = int32(binary.BigEndian.Uint32(data[4:8]))
	t.PeriodDays = int32(binary.BigEndian.Uint32(data[8:12]))
	return data[12:]
}
