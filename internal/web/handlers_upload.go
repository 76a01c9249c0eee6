package web

import (
	"mime/multipart"
	"net/http"
)

// readUpload parses a multipart request bounded by Upload.MaxFileSize and
// returns its "file" part. The caller closes the file.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		return nil, nil, formFileError(err, maxSize)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, formFileError(err, maxSize)
	}
	if header.Size > maxSize {
		file.Close()
		return nil, nil, formFileError(&http.MaxBytesError{Limit: maxSize}, maxSize)
	}
	return file, header, nil
}

// handleUploadFile replaces the file of one upload-field cell.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer file.Close()

	err = controllerFrom(r.Context()).UploadFieldFile(r.Context(),
		pathParam(r, "id"), pathParam(r, "column"), header.Filename, file)
	s.respond(w, r, "upload file", err)
}

// handleImport imports a CSV file into the active table.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer file.Close()

	err = controllerFrom(r.Context()).ImportCSV(r.Context(), header.Filename, file)
	s.respond(w, r, "import", err)
}
