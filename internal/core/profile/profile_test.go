package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNilAndGarbage(t *testing.T) {
	assert.True(t, Parse(nil).IsEmpty())
	assert.True(t, Parse([]byte("not json")).IsEmpty())
	assert.True(t, Parse([]byte("null")).IsEmpty())
}

func TestParseBasicFields(t *testing.T) {
	p := Parse([]byte(`{"name":" Glow Salon ","time_zone":"Asia/Jakarta"}`))
	assert.Equal(t, "Glow Salon", p.Name())
	assert.Equal(t, "Asia/Jakarta", p.Timezone())
}

func TestTimezonePrecedence(t *testing.T) {
	p := Parse([]byte(`{"time_zone":"Asia/Jakarta","timezone":"UTC"}`))
	assert.Equal(t, "Asia/Jakarta", p.Timezone())

	legacy := Parse([]byte(`{"timezone":"UTC+7"}`))
	assert.Equal(t, "UTC+7", legacy.Timezone())
}

func TestOwnerPhonePrecedence(t *testing.T) {
	p := Parse([]byte(`{"owner_whatsapp":"+62811","contact_phone":"+62822"}`))
	assert.Equal(t, "+62811", p.OwnerPhone())

	p = Parse([]byte(`{"contact_phone":"+62822","owner_phone":"+62833"}`))
	assert.Equal(t, "+62822", p.OwnerPhone())

	assert.Equal(t, "", Parse([]byte(`{}`)).OwnerPhone())
}

func TestOpeningHoursLowercasesDays(t *testing.T) {
	p := Parse([]byte(`{"opening_hours":{"Monday":"09:00-18:00","SUNDAY":"closed","friday":7}}`))
	hours := p.OpeningHours()
	assert.Equal(t, "09:00-18:00", hours["monday"])
	assert.Equal(t, "closed", hours["sunday"])
	_, present := hours["friday"]
	assert.False(t, present, "non-string hour values are skipped")
}

func TestServicesSkipUnnamedEntries(t *testing.T) {
	p := Parse([]byte(`{"services":[
		{"name":"Haircut","price":150000},
		{"name":"  "},
		{"price":99},
		"not an object",
		{"name":"Spa Day"}
	]}`))

	services := p.Services()
	require.Len(t, services, 2)
	assert.Equal(t, "Haircut", services[0].Name)
	require.NotNil(t, services[0].Price)
	assert.Equal(t, 150000.0, *services[0].Price)
	assert.Equal(t, "Spa Day", services[1].Name)
	assert.Nil(t, services[1].Price)
}

func TestSetPathCreatesNestedObjects(t *testing.T) {
	p := Profile{}
	require.True(t, p.SetPath("refunds.refund_policy", "7 days"))

	refunds, ok := p["refunds"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "7 days", refunds["refund_policy"])
}

func TestSetPathReplacesScalarIntermediate(t *testing.T) {
	p := Profile{"refunds": "none"}
	require.True(t, p.SetPath("refunds.refund_policy", "7 days"))

	refunds, ok := p["refunds"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "7 days", refunds["refund_policy"])
}

func TestSetPathEmptyPathIsNoOp(t *testing.T) {
	p := Profile{"name": "Glow Salon"}
	assert.False(t, p.SetPath("", "x"))
	assert.False(t, p.SetPath(" . . ", "x"))
	assert.Equal(t, "Glow Salon", p.Name())
}

func TestJSONRoundTrip(t *testing.T) {
	p := Parse([]byte(`{"name":"Glow Salon"}`))
	again := Parse(p.JSON())
	assert.Equal(t, "Glow Salon", again.Name())
}
