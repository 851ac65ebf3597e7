package draft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsToCard(t *testing.T) {
	assert.Equal(t, OrderDraft{PaymentMethod: PaymentCard}, New().Draft())
}

func TestFromQuery(t *testing.T) {
	assert.Equal(t, PaymentKakao, FromQuery("kakao").Draft().PaymentMethod)
	assert.Equal(t, PaymentCard, FromQuery("card").Draft().PaymentMethod)
	assert.Equal(t, PaymentCard, FromQuery("bitcoin").Draft().PaymentMethod)
	assert.Equal(t, PaymentCard, FromQuery("").Draft().PaymentMethod)
}

func TestSetField(t *testing.T) {
	b := New()
	b.SetField(FieldAddress, "Seoul")
	b.SetField(FieldDetailAddress, "101-2")
	b.SetField(FieldPaymentMethod, "kakao")
	b.SetField("coupon", "ignored")

	assert.Equal(t, OrderDraft{Address: "Seoul", DetailAddress: "101-2", PaymentMethod: PaymentKakao}, b.Draft())
}

func TestSetField_DoesNotValidate(t *testing.T) {
	b := New()
	b.SetField(FieldAddress, "")
	b.SetField(FieldPaymentMethod, "whatever")
	assert.Equal(t, PaymentMethod("whatever"), b.Draft().PaymentMethod)
}

func TestFromDraft_FillsMissingMethod(t *testing.T) {
	d := FromDraft(OrderDraft{Address: "Busan"}).Draft()
	assert.Equal(t, PaymentCard, d.PaymentMethod)
	assert.Equal(t, "Busan", d.Address)
}

func TestResolveAddress_NotReady(t *testing.T) {
	b := New()
	assert.ErrorIs(t, b.ResolveAddress(nil), ErrWidgetNotReady)
	assert.ErrorIs(t, b.ResolveAddress(CompletedLookup{}), ErrWidgetNotReady)
	assert.Empty(t, b.Draft().Address)
}

func TestResolveAddress_PrefersRoadAddress(t *testing.T) {
	b := New()
	b.SetField(FieldDetailAddress, "3F")
	require.NoError(t, b.ResolveAddress(CompletedLookup{Result: &AddressResult{RoadAddress: "Road 1", JibunAddress: "Lot 9"}}))
	assert.Equal(t, "Road 1", b.Draft().Address)
	assert.Equal(t, "3F", b.Draft().DetailAddress)

	require.NoError(t, b.ResolveAddress(CompletedLookup{Result: &AddressResult{JibunAddress: "Lot 9"}}))
	assert.Equal(t, "Lot 9", b.Draft().Address)
}

type deferredLookup struct {
	cb func(AddressResult)
}

func (d *deferredLookup) Loaded() bool { return true }
func (d *deferredLookup) Open(onComplete func(AddressResult)) { d.cb = onComplete }

func TestResolveAddress_AppliesOnCompletion(t *testing.T) {
	b := New()
	l := &deferredLookup{}
	require.NoError(t, b.ResolveAddress(l))
	assert.Empty(t, b.Draft().Address)

	l.cb(AddressResult{RoadAddress: "Later St"})
	assert.Equal(t, "Later St", b.Draft().Address)
}

func TestScriptSet_InjectsOncePerID(t *testing.T) {
	var s ScriptSet
	assert.True(t, s.Inject(PostcodeScriptID, PostcodeScriptSrc))
	assert.False(t, s.Inject(PostcodeScriptID, "//other/src.js"))
	assert.True(t, s.Inject("analytics", "/a.js"))

	scripts := s.Scripts()
	require.Len(t, scripts, 2)
	assert.Equal(t, Script{ID: PostcodeScriptID, Src: PostcodeScriptSrc}, scripts[0])

	scripts[0].Src = "mutated"
	assert.Equal(t, PostcodeScriptSrc, s.Scripts()[0].Src, "callers get a copy")
}
