package javaobj

import (
	"testing"
)

func newJavaTimeSer(payload []byte) *JavaTime {
	cd := &ClassDesc{Kind: NormalClass, Name: javaTimeSerClass}
	jt := &JavaTime{}
	jt.Annotations = map[*ClassDesc][]ParsedContent{
		cd: {&BlockData{Data: payload}},
	}
	return jt
}

func TestJavaTimeLocalDate(t *testing.T) {
	payload := []byte{byte(timeLocalDate), 0, 0, 0x07, 0xE6, 7, 29} // 2022-07-29
	jt := newJavaTimeSer(payload)
	if err := jt.LoadFromInstance(); err != nil {
		t.Fatalf("LoadFromInstance: %v", err)
	}
	if jt.Year != 0x07E6 || jt.Month != 7 || jt.Day != 29 {
		t.Fatalf("got year=%d month=%d day=%d", jt.Year, jt.Month, jt.Day)
	}
}

func TestJavaTimeLocalTimeOmittedFields(t *testing.T) {
	// Hour 10 with minute/second/nano all omitted: only the hour byte is
	// present, bitwise-complemented per the wire's "value omitted" sentinel.
	negTen := int8(^int8(10))
	payload := []byte{byte(timeLocalTime), byte(negTen)}
	jt := newJavaTimeSer(payload)
	if err := jt.LoadFromInstance(); err != nil {
		t.Fatalf("LoadFromInstance: %v", err)
	}
	if jt.Hour != 10 || jt.Minute != 0 || jt.Second != 0 || jt.Nano != 0 {
		t.Fatalf("got hour=%d minute=%d second=%d nano=%d", jt.Hour, jt.Minute, jt.Second, jt.Nano)
	}
}

func TestJavaTimeZoneOffsetExplicit(t *testing.T) {
	// offsetByte == 127 means an explicit 4-byte offset follows, here
	// -12600 seconds (-03:30).
	payload := []byte{byte(timeZoneOffset), 127, 0xFF, 0xFF, 0xCE, 0xC8}
	jt := newJavaTimeSer(payload)
	if err := jt.LoadFromInstance(); err != nil {
		t.Fatalf("LoadFromInstance: %v", err)
	}
	if jt.Offset != -12600 {
		t.Fatalf("got offset=%d", jt.Offset)
	}
}

func TestJavaTimeZoneOffsetQuarterHour(t *testing.T) {
	// offsetByte 4 means 4*900 = 3600 seconds (+01:00).
	payload := []byte{byte(timeZoneOffset), 4}
	jt := newJavaTimeSer(payload)
	if err := jt.LoadFromInstance(); err != nil {
		t.Fatalf("LoadFromInstance: %v", err)
	}
	if jt.Offset != 3600 {
		t.Fatalf("got offset=%d", jt.Offset)
	}
}

func TestJavaTimeDuration(t *testing.T) {
	payload := make([]byte, 13)
	payload[0] = byte(timeDuration)
	// seconds = 1000, nano = 500
	payload[1], payload[2], payload[3], payload[4] = 0, 0, 0, 0
	payload[5], payload[6], payload[7], payload[8] = 0, 0, 3, 0xE8
	payload[9], payload[10], payload[11], payload[12] = 0, 0, 1, 0xF4
	jt := newJavaTimeSer(payload)
	if err := jt.LoadFromInstance(); err != nil {
		t.Fatalf("LoadFromInstance: %v", err)
	}
	if jt.Seconds != 1000 || jt.Nano != 500 {
		t.Fatalf("got seconds=%d nano=%d", jt.Seconds, jt.Nano)
	}
}

func TestJavaTimePeriodUsesFullWidthFields(t *testing.T) {
	payload := []byte{
		byte(timePeriod),
		0, 0, 0, 2, // years
		0, 0, 0, 6, // months
		0, 0, 0, 15, // days
	}
	jt := newJavaTimeSer(payload)
	if err := jt.LoadFromInstance(); err != nil {
		t.Fatalf("LoadFromInstance: %v", err)
	}
	if jt.PeriodYears != 2 || jt.PeriodMonths != 6 || jt.PeriodDays != 15 {
		t.Fatalf("got years=%d months=%d days=%d", jt.PeriodYears, jt.PeriodMonths, jt.PeriodDays)
	}
}

func TestJavaTimeZoneRegion(t *testing.T) {
	region := "America/Sao_Paulo"
	payload := []byte{byte(timeZoneRegion), 0, byte(len(region))}
	payload = append(payload, []byte(region)...)
	jt := newJavaTimeSer(payload)
	if err := jt.LoadFromInstance(); err != nil {
		t.Fatalf("LoadFromInstance: %v", err)
	}
	if jt.Zone != region {
		t.Fatalf("got zone=%q", jt.Zone)
	}
}
