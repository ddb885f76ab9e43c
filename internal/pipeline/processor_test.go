package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/extract"
	"github.com/joseph-ayodele/docintake/internal/inference"
	"github.com/joseph-ayodele/docintake/internal/mapping"
	"github.com/joseph-ayodele/docintake/internal/normalize"
	"github.com/joseph-ayodele/docintake/internal/review"
)

type replayClient struct {
	requests []inference.Request
	reply    []byte
	err      error
}

func (c *replayClient) Complete(_ context.Context, req inference.Request) (inference.Response, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return inference.Response{}, c.err
	}
	return inference.Response{Content: c.reply}, nil
}

func newTestProcessor(client inference.Client) (*Processor, *review.Service) {
	reviews := review.NewService(review.CommitterFunc(func(context.Context, *review.Item, json.RawMessage) error {
		return nil
	}), nil)
	engine := extract.NewEngine(client, nil)
	mapper := mapping.NewMapper(client, nil)
	return NewProcessor(engine, mapper, reviews, nil), reviews
}

func extractionTask(t *testing.T, taskType constants.TaskType, input any) *entity.Task {
	t.Helper()
	raw, err := json.Marshal(input)
	require.NoError(t, err)
	return &entity.Task{ID: uuid.New(), OwnerID: uuid.New(), Type: taskType, Input: raw}
}

func TestHandleEmailExtraction(t *testing.T) {
	client := &replayClient{reply: []byte(`{
		"donor_name": "Jane Doe",
		"amount": "25.00",
		"donation_date": "2024-01-15",
		"confidence": 0.93
	}`)}
	p, _ := newTestProcessor(client)

	csvPayload := base64.StdEncoding.EncodeToString([]byte("Donor,Amount\nJane Doe,25.00\n"))
	tk := extractionTask(t, constants.TaskTypeEmailExtraction, EmailExtractionInput{
		Email: normalize.EmailMessage{
			From:     "finance@example.org",
			Subject:  "Donation received",
			TextBody: "A donation of 25.00 was received from Jane Doe on 2024-01-15.",
			Attachments: []normalize.Attachment{
				{Filename: "donation.csv", ContentType: "text/csv", Data: csvPayload},
			},
		},
		DocumentType: constants.DocTypeDonation,
	})

	raw, confidence, err := p.HandleEmailExtraction(context.Background(), tk)
	require.NoError(t, err)
	require.NotNil(t, confidence)
	assert.InDelta(t, 0.93, *confidence, 1e-6)

	var out ExtractionOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, constants.DispositionAutoApproved, out.Disposition)
	assert.True(t, out.Result.Success)
	assert.Empty(t, out.ReviewItemID, "auto-approved results are committed, not queued")

	require.Len(t, client.requests, 1)
	sent := client.requests[0].Content
	assert.Contains(t, sent, "Subject: Donation received")
	assert.Contains(t, sent, "Jane Doe,25.00", "csv attachment rows reach the engine")
}

func TestHandleEmailExtractionBadInput(t *testing.T) {
	p, _ := newTestProcessor(&replayClient{reply: []byte(`{}`)})
	tk := &entity.Task{ID: uuid.New(), OwnerID: uuid.New(), Input: json.RawMessage(`{broken`)}

	_, _, err := p.HandleEmailExtraction(context.Background(), tk)
	assert.Error(t, err)
}

func TestHandleEmailExtractionNeedsReviewQueuesItem(t *testing.T) {
	client := &replayClient{reply: []byte(`{
		"donor_name": "Jane Doe",
		"amount": "25.00",
		"donation_date": "2024-01-15",
		"confidence": 0.6
	}`)}
	p, reviews := newTestProcessor(client)

	tk := extractionTask(t, constants.TaskTypeEmailExtraction, EmailExtractionInput{
		Email:        normalize.EmailMessage{TextBody: "donation text"},
		DocumentType: constants.DocTypeDonation,
	})

	raw, _, err := p.HandleEmailExtraction(context.Background(), tk)
	require.NoError(t, err)

	var out ExtractionOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, constants.DispositionNeedsReview, out.Disposition)
	require.NotEmpty(t, out.ReviewItemID)

	itemID, err := uuid.Parse(out.ReviewItemID)
	require.NoError(t, err)
	item, err := reviews.Get(itemID)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, item.TaskID)
	assert.Contains(t, item.OriginalContent, "donation text")
}

func TestHandleDocumentOCRDefaultsToDBS(t *testing.T) {
	client := &replayClient{reply: []byte(`{
		"person_name": "Jane Doe",
		"dbs_certificate_number": "123456789012",
		"issue_date": "2024-01-15",
		"confidence": 0.9
	}`)}
	p, _ := newTestProcessor(client)

	tk := extractionTask(t, constants.TaskTypeDocumentOCR, DocumentOCRInput{
		Pages: []string{"page one text", "page two text"},
	})

	raw, _, err := p.HandleDocumentOCR(context.Background(), tk)
	require.NoError(t, err)
	require.Len(t, client.requests, 2, "one call per page")
	assert.Equal(t, "dbs_certificate", client.requests[0].Context["document_type"])

	var out ExtractionOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.True(t, out.Result.Success)
	assert.Equal(t, constants.DispositionAutoApproved, out.Disposition)
}

func TestHandleDocumentOCRServiceFailureFailsTask(t *testing.T) {
	p, _ := newTestProcessor(&replayClient{err: errors.New("service unreachable")})

	tk := extractionTask(t, constants.TaskTypeDocumentOCR, DocumentOCRInput{Pages: []string{"page"}})
	_, _, err := p.HandleDocumentOCR(context.Background(), tk)
	assert.Error(t, err)
}

func TestHandleCSVMapping(t *testing.T) {
	client := &replayClient{reply: []byte(`{"mappings":[
		{"target_field":"person_name","source_column":"Name","confidence":0.95},
		{"target_field":"dbs_certificate_number","source_column":"DBS No","confidence":0.9},
		{"target_field":"issue_date","source_column":"Issued","confidence":0.9}
	]}`)}
	p, _ := newTestProcessor(client)

	tk := extractionTask(t, constants.TaskTypeCSVMapping, CSVMappingInput{
		Data:     []byte("Name,DBS No,Issued\nJane Doe,123456789012,2024-01-15\n"),
		SchemaID: "dbs_check",
	})

	raw, confidence, err := p.HandleCSVMapping(context.Background(), tk)
	require.NoError(t, err)
	require.NotNil(t, confidence)
	assert.InDelta(t, (0.95+0.9+0.9)/3, *confidence, 1e-5)

	var out MappingOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, []string{"Name", "DBS No", "Issued"}, out.Headers)
	assert.Equal(t, 1, out.RowCount)
	assert.True(t, out.Mapping.Valid())
	require.Len(t, out.Records, 1)
	assert.Equal(t, "Jane Doe", out.Records[0]["person_name"])
	assert.Equal(t, "123456789012", out.Records[0]["dbs_certificate_number"])
	assert.Equal(t, "2024-01-15", out.Records[0]["issue_date"])
}

func TestHandleCSVMappingInvalidMappingOmitsRecords(t *testing.T) {
	p, _ := newTestProcessor(&replayClient{err: errors.New("mapping service down")})

	tk := extractionTask(t, constants.TaskTypeCSVMapping, CSVMappingInput{
		Data:     []byte("Name,DBS No,Issued\nJane Doe,123456789012,2024-01-15\n"),
		SchemaID: "dbs_check",
	})

	raw, confidence, err := p.HandleCSVMapping(context.Background(), tk)
	require.NoError(t, err, "a failed mapping service still produces a manual-mapping output")
	require.NotNil(t, confidence)
	assert.Zero(t, *confidence)

	var out MappingOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.False(t, out.Mapping.Valid())
	assert.Empty(t, out.Records)
	assert.NotEmpty(t, out.Mapping.MissingRequiredFields)
}

func TestHandleCSVMappingUnknownSchema(t *testing.T) {
	p, _ := newTestProcessor(&replayClient{reply: []byte(`{"mappings":[]}`)})

	tk := extractionTask(t, constants.TaskTypeCSVMapping, CSVMappingInput{
		Data:     []byte("a,b\n1,2\n"),
		SchemaID: "no_such_schema",
	})
	_, _, err := p.HandleCSVMapping(context.Background(), tk)
	assert.Error(t, err)
}

func TestHandleCSVMappingCustomDelimiter(t *testing.T) {
	client := &replayClient{reply: []byte(`{"mappings":[
		{"target_field":"person_name","source_column":"Name","confidence":0.95},
		{"target_field":"dbs_certificate_number","source_column":"DBS No","confidence":0.9},
		{"target_field":"issue_date","source_column":"Issued","confidence":0.9}
	]}`)}
	p, _ := newTestProcessor(client)

	tk := extractionTask(t, constants.TaskTypeCSVMapping, CSVMappingInput{
		Data:      []byte("Name;DBS No;Issued\nJane Doe;123456789012;2024-01-15\n"),
		Delimiter: ";",
		SchemaID:  "dbs_check",
	})

	raw, _, err := p.HandleCSVMapping(context.Background(), tk)
	require.NoError(t, err)
	var out MappingOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, []string{"Name", "DBS No", "Issued"}, out.Headers)
	assert.True(t, out.Mapping.Valid())
}
