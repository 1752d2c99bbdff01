package extract

import (
	"encoding/json"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// DecodeResultJSON validates and decodes a Result submitted as JSON.
func DecodeResultJSON(data []byte) (*Result, error) {
	schema, err := compiledResultSchema()
	if err != nil {
		return nil, common.NewStageError(constants.StageExtract, common.ErrInternal, "result schema", err)
	}
	if err := validateWith(schema, data); err != nil {
		return nil, common.NewStageError(constants.StageExtract, common.ErrUnprocessableDocument, "invalid result json", err)
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, common.NewStageError(constants.StageExtract, common.ErrUnprocessableDocument, "decode result json", err)
	}
	res.Fields = dedupeFields(res.Fields)
	for i := range res.LineItems {
		res.LineItems[i].Fields = dedupeFields(res.LineItems[i].Fields)
	}
	return &res, nil
}

// DecodeDocumentJSON converts a saved Document AI response into a Result.
// Both a bare Document and a ProcessResponse wrapping one are accepted.
func DecodeDocumentJSON(data []byte) (*Result, error) {
	opts := protojson.UnmarshalOptions{DiscardUnknown: true}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, common.NewStageError(constants.StageExtract, common.ErrUnprocessableDocument, "decode document json", err)
	}

	doc := &documentaipb.Document{}
	if _, wrapped := probe["document"]; wrapped {
		var resp documentaipb.ProcessResponse
		if err := opts.Unmarshal(data, &resp); err != nil {
			return nil, common.NewStageError(constants.StageExtract, common.ErrUnprocessableDocument, "decode process response", err)
		}
		doc = resp.GetDocument()
	} else if err := opts.Unmarshal(data, doc); err != nil {
		return nil, common.NewStageError(constants.StageExtract, common.ErrUnprocessableDocument, "decode document", err)
	}
	if doc == nil {
		return nil, common.NewStageError(constants.StageExtract, common.ErrUnprocessableDocument, "response carried no document", nil)
	}

	res := FromDocument(doc)
	res.Raw = data
	return res, nil
}

// DecodeJSON accepts either Result JSON or a saved Document AI response.
func DecodeJSON(data []byte) (*Result, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, common.NewStageError(constants.StageExtract, common.ErrUnprocessableDocument, "input is not a json object", err)
	}
	if _, ok := probe["fields"]; ok {
		return DecodeResultJSON(data)
	}
	if _, ok := probe["entities"]; ok {
		return DecodeDocumentJSON(data)
	}
	if _, ok := probe["document"]; ok {
		return DecodeDocumentJSON(data)
	}
	return nil, common.NewStageError(constants.StageExtract, common.ErrUnprocessableDocument,
		"json holds neither fields nor document entities", nil)
}
