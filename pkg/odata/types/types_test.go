package types

import (
	"math"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestKindNamesAreComplete(t *testing.T) {
	is := is.New(t)

	for _, k := range AllKinds() {
		is.True(kindNames[k] != "") // every kind should have a name

		parsed, err := ParseKind(k.EdmName())
		is.NoErr(err)
		is.Equal(parsed, k)
	}
}

func TestParseShortKindName(t *testing.T) {
	is := is.New(t)

	k, err := ParseKind("Int32")
	is.NoErr(err)
	is.Equal(k, KindInt32)

	_, err = ParseKind("Edm.UInt32")
	is.True(err != nil) // there is no unsigned primitive type
}

func TestSpatialFamilies(t *testing.T) {
	is := is.New(t)

	is.True(KindGeographyPoint.IsGeography())
	is.True(!KindGeographyPoint.IsGeometry())
	is.True(KindGeometryMultiPolygon.IsSpatial())
	is.True(!KindString.IsSpatial())
	is.True(!KindPrimitiveType.IsSpatial())
}

func TestFormatDuration(t *testing.T) {
	is := is.New(t)

	is.Equal(FormatDuration(0), "PT0S")
	is.Equal(FormatDuration(90*time.Minute), "PT1H30M")
	is.Equal(FormatDuration(26*time.Hour), "P1DT2H")
	is.Equal(FormatDuration(48*time.Hour), "P2D")
	is.Equal(FormatDuration(-1500*time.Millisecond), "-PT1.5S")
	is.Equal(FormatDuration(time.Nanosecond), "PT0.000000001S")
}

func TestParseDurationRoundTrips(t *testing.T) {
	is := is.New(t)

	for _, d := range []time.Duration{
		0, time.Nanosecond, 90 * time.Minute, 26*time.Hour + 3*time.Second, -1500 * time.Millisecond, 400 * 24 * time.Hour,
	} {
		parsed, err := ParseDuration(FormatDuration(d))
		is.NoErr(err)
		is.Equal(parsed, d)
	}
}

func TestParseDurationRejectsMalformedInput(t *testing.T) {
	is := is.New(t)

	for _, s := range []string{"", "P", "PT", "1H", "P1M", "PT1S2M", "PT1.5H", "P1DT", "PTxS"} {
		_, err := ParseDuration(s)
		is.True(err != nil) // malformed durations should fail
	}
}

func TestParseDurationRejectsOverflow(t *testing.T) {
	is := is.New(t)

	for _, s := range []string{"PT9999999999999H", "P106751DT23H59M59S", "P106751DT48H", "P106752D", "PT9223372036.854775808S"} {
		_, err := ParseDuration(s)
		is.True(err != nil) // durations beyond the int64 range should fail instead of wrapping
	}

	d, err := ParseDuration(FormatDuration(time.Duration(math.MaxInt64)))
	is.NoErr(err)
	is.Equal(d, time.Duration(math.MaxInt64))
}

func TestParseDurationRejectsSignedComponents(t *testing.T) {
	is := is.New(t)

	for _, s := range []string{"PT+5S", "P+1D", "PT-5S", "PT1.+5S", "P-1D", "--PT1S"} {
		_, err := ParseDuration(s)
		is.True(err != nil) // only a leading minus before P may carry a sign
	}
}

func TestDateParsing(t *testing.T) {
	is := is.New(t)

	d, err := ParseDate("2024-02-29")
	is.NoErr(err)
	is.Equal(d, Date{Year: 2024, Month: time.February, Day: 29})
	is.Equal(d.String(), "2024-02-29")

	_, err = NewDate(2023, time.February, 29)
	is.True(err != nil) // 2023 is not a leap year
}

func TestTimeOfDayParsing(t *testing.T) {
	is := is.New(t)

	tod, err := ParseTimeOfDay("13:45:07.25")
	is.NoErr(err)
	is.Equal(tod, TimeOfDay{Hour: 13, Minute: 45, Second: 7, Nanosecond: 250000000})
	is.Equal(tod.String(), "13:45:07.25")

	tod, err = ParseTimeOfDay("08:30")
	is.NoErr(err)
	is.Equal(tod.String(), "08:30:00")

	_, err = ParseTimeOfDay("24:00:00")
	is.True(err != nil) // hour out of range

	for _, s := range []string{"12:00:00.+5", "+1:00:00", "12:-1:00", "12:00:+5"} {
		_, err = ParseTimeOfDay(s)
		is.True(err != nil) // signs are not allowed inside a component
	}
}
