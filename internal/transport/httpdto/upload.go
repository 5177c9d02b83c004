package httpdto

// InitUploadRequest declares a chunked upload session's manifest.
type InitUploadRequest struct {
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ChunkSize   int64  `json:"chunkSize"`
	TotalChunks int    `json:"totalChunks"`
	Folder      string `json:"folder"`
}

type CompleteUploadRequest struct {
	UploadID string `json:"uploadId"`
}

type LoginRequest struct {
	Password string `json:"password"`
}

type CreateFolderRequest struct {
	Name string `json:"name"`
}
