package models

import "path/filepath"

// BlobType categorizes an uploaded blob by its role in a job.
type BlobType string

const (
	BlobTypeModelDB     BlobType = "MODELDB"
	BlobTypeCAD         BlobType = "CAD"
	BlobTypeCSV         BlobType = "CSV"
	BlobTypeSimAPI      BlobType = "SIMAPI"
	BlobTypeBinCAD      BlobType = "BINCAD"
	BlobTypeBRep        BlobType = "BREP"
	BlobTypeSimMetaData BlobType = "SIMMETADATA"
)

// BlobTypeForFile infers a blob type from a file extension. Returns the
// empty string for files with no dedicated blob type.
func BlobTypeForFile(filename string) BlobType {
	switch filepath.Ext(filename) {
	case ".jfp":
		return BlobTypeModelDB
	case ".step", ".stp":
		return BlobTypeCAD
	case ".csv":
		return BlobTypeCSV
	case ".py":
		return BlobTypeSimAPI
	case ".bincad":
		return BlobTypeBinCAD
	case ".brep":
		return BlobTypeBRep
	}
	return ""
}

// ObjectType identifies the kind of portal object a blob belongs to.
type ObjectType string

const (
	ObjectTypeJob     ObjectType = "JOB"
	ObjectTypeProject ObjectType = "PROJECT"
	ObjectTypeDesign  ObjectType = "DESIGN"
)

// Blob is an uploaded file record.
type Blob struct {
	BlobID           string     `json:"blobId,omitempty"`
	ParentBlobID     string     `json:"parentBlobId,omitempty"`
	ObjectID         string     `json:"objectId,omitempty"`
	ObjectType       ObjectType `json:"objectType,omitempty"`
	BlobType         BlobType   `json:"blobType,omitempty"`
	OriginalFileName string     `json:"originalFileName,omitempty"`
	FileSize         int64      `json:"fileSize,omitempty"`
	Hash             string     `json:"hash,omitempty"`
	CreateDate       int64      `json:"createDate,omitempty"`
}

// BlobRequest filters blobs by owning object for /blob/list/object.
type BlobRequest struct {
	BlobType   BlobType   `json:"blobType"`
	ObjectID   string     `json:"objectId"`
	ObjectType ObjectType `json:"objectType"`
}

// BlobIDRequest identifies a blob for /blob/list/children.
type BlobIDRequest struct {
	BlobID string `json:"blobId"`
}

// JobFile is a file stored in a job's working directory.
type JobFile struct {
	JobID           string       `json:"jobId,omitempty"`
	SimulationID    string       `json:"simulationId,omitempty"`
	FileName        string       `json:"fileName,omitempty"`
	FileSize        int64        `json:"fileSize,omitempty"`
	DownloadRequest *HTTPRequest `json:"downloadRequest,omitempty"`
}

// HTTPRequest is a presigned transfer request issued by the portal. URI,
// header values and form fields may carry #fileName#, #urlEncodedFileName#
// and #fileSize# placeholders which the uploader substitutes per file.
type HTTPRequest struct {
	Method     string            `json:"method,omitempty"`
	URI        string            `json:"uri,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	FormFields map[string]string `json:"formFields,omitempty"`
}
