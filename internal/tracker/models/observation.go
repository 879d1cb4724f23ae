package models

// Upload is an attachment as received from the presentation layer.
type Upload struct {
	Name string
	Data []byte
}

// Observation is a single tester interaction with one test case: the
// checkbox state, the remark text and an optional remark image.
type Observation struct {
	TestCaseID string
	Tester     string
	Tested     bool
	Remarks    string
	Attachment *Upload
}
