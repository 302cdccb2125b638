package models

// ResponseSignal values are the machine-readable strings returned to clients
// alongside HTTP status codes.
type ResponseSignal string

const (
	SignalFileValidatedSuccess ResponseSignal = "file_validate_successfully"
	SignalFileTypeNotSupported ResponseSignal = "file_type_not_supported"
	SignalFileSizeExceeded     ResponseSignal = "file_size_exceeded"
	SignalFileUploadSuccess    ResponseSignal = "file_upload_success"
	SignalFileUploadFailed     ResponseSignal = "file_upload_failed"

	SignalProcessingSuccess ResponseSignal = "processing_success"
	SignalProcessingFailed  ResponseSignal = "processing_failed"
	SignalNoFilesError      ResponseSignal = "not_found_files"
	SignalFileIDError       ResponseSignal = "no_file_found_with_this_id"

	SignalProjectNotFoundError ResponseSignal = "project_not_found_error"
	SignalNoChunksError        ResponseSignal = "not_found_chunks"

	SignalInsertIntoVectorDBError     ResponseSignal = "insert_into_vectordb_error"
	SignalInsertIntoVectorDBSuccess   ResponseSignal = "insert_into_vectordb_success"
	SignalVectorDBCollectionRetrieved ResponseSignal = "vectordb_collection_retrieved"
	SignalVectorDBSearchError         ResponseSignal = "vectordb_search_error"
	SignalVectorDBSearchSuccess       ResponseSignal = "vectordb_search_success"

	SignalRAGAnswerError   ResponseSignal = "rag_answer_error"
	SignalRAGAnswerSuccess ResponseSignal = "rag_answer_success"
)
