package rows

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
	"github.com/matthewbaird/tablefilter/internal/filter/payload"
)

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]string{
		"closed":      StatusClosed,
		"LEAD":        StatusLead,
		"Proposal":    StatusProposal,
		"lost":        StatusLost,
		"qualified":   StatusQualified,
		"Negotiation": StatusNegotiation,
	}
	for in, want := range cases {
		got, ok := NormalizeStatus(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}

	got, ok := NormalizeStatus("on hold")
	assert.False(t, ok)
	assert.Equal(t, StatusProposal, got)
}

func TestToRows(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)

	records := []Record{
		{ID: 7, Name: "A", Status: "closed"},
		{Name: "B", Status: "mystery"},
	}
	got := ToRows(records, logger)
	require.Len(t, got, 2)
	assert.Equal(t, 7, got[0].ID)
	assert.Equal(t, StatusClosed, got[0].Status)
	assert.Equal(t, 2, got[1].ID, "missing id falls back to position")
	assert.Equal(t, StatusProposal, got[1].Status)
	assert.Contains(t, logs.String(), `"status":"mystery"`)
	assert.Contains(t, logs.String(), `"level":"warn"`)
}

func TestRow_JSONKeys(t *testing.T) {
	data, err := json.Marshal(Row{ID: 1, Name: "A", EstimatedValue: value(10)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"Name":"A","Company":"","Status":"","Priority":"","EstimatedValue":10,"AccountOwner":"","FollowUp":false}`, string(data))
}

func TestWireSortProperty(t *testing.T) {
	assert.Equal(t, "Estimated Value", WireSortProperty("EstimatedValue"))
	assert.Equal(t, "Account Owner", WireSortProperty("AccountOwner"))
	assert.Equal(t, "Follow Up", WireSortProperty("FollowUp"))
	assert.Equal(t, "Close Date", WireSortProperty("CloseDate"))
	assert.Equal(t, "Company", WireSortProperty("Company"))
}

func TestQuery_JSON(t *testing.T) {
	q := FromPayload(payload.Payload{
		Filter: &payload.CompoundFilter{Operator: catalog.And, Filters: []payload.Filter{
			&payload.PropertyFilter{Property: "Priority", Type: catalog.Select, Condition: "equals", Value: "High"},
		}},
		MaxNestingLevel: 2,
	}, &Sort{Property: "Estimated Value", Direction: Descending})

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"filter":{"and":[{"property":"Priority","select":{"equals":"High"}}]},
		"maxNestingLevel":2,
		"sort":{"property":"Estimated Value","direction":"descending"}
	}`, string(data))

	var back Query
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, q, back)

	data, err = json.Marshal(Query{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestCheckDepth(t *testing.T) {
	rule := &payload.PropertyFilter{Property: "Name", Type: catalog.RichText, Condition: "equals", Value: "x"}
	nested := &payload.CompoundFilter{Operator: catalog.And, Filters: []payload.Filter{
		&payload.CompoundFilter{Operator: catalog.Or, Filters: []payload.Filter{rule}},
	}}
	assert.NoError(t, CheckDepth(nil, 0))
	assert.NoError(t, CheckDepth(nested, 2))
	assert.NoError(t, CheckDepth(nested, 0))
	assert.ErrorIs(t, CheckDepth(nested, 1), payload.ErrInvalidFilter)
}
