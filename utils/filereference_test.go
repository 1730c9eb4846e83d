package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFileReference(t *testing.T) {
	tests := []struct {
		name         string
		fileURL      string
		fileName     string
		fileSize     int64
		expectedCode string
	}{
		{
			name:     "valid stl reference",
			fileURL:  "s3://printvend-models/uploads/keychain.stl",
			fileName: "keychain.stl",
			fileSize: 1024,
		},
		{
			name:     "valid gcode with extension only on url",
			fileURL:  "s3://printvend-models/uploads/bracket.gcode",
			fileSize: 2048,
		},
		{
			name:         "missing reference",
			fileURL:      "",
			fileName:     "keychain.stl",
			expectedCode: "MISSING_FILE_REFERENCE",
		},
		{
			name:         "disallowed extension",
			fileURL:      "s3://printvend-models/uploads/readme.txt",
			fileName:     "readme.txt",
			expectedCode: "INVALID_FILE_FORMAT",
		},
		{
			name:         "file too large",
			fileURL:      "s3://printvend-models/uploads/tank.stl",
			fileName:     "tank.stl",
			fileSize:     MaxModelFileSize + 1,
			expectedCode: "FILE_TOO_LARGE",
		},
		{
			name:         "negative size",
			fileURL:      "s3://printvend-models/uploads/keychain.stl",
			fileName:     "keychain.stl",
			fileSize:     -1,
			expectedCode: "INVALID_FILE_SIZE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileReference(tt.fileURL, tt.fileName, tt.fileSize)
			if tt.expectedCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			refErr, ok := err.(*FileReferenceError)
			assert.True(t, ok, "error should be a FileReferenceError")
			assert.Equal(t, tt.expectedCode, refErr.Code)
		})
	}
}

func TestValidateFileReferenceUppercaseExtension(t *testing.T) {
	err := ValidateFileReference("s3://bucket/uploads/PART.STL", "PART.STL", 100)
	assert.NoError(t, err)
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		name           string
		ref            string
		expectedBucket string
		expectedKey    string
		expectedOK     bool
	}{
		{
			name:           "s3 scheme",
			ref:            "s3://printvend-models/uploads/keychain.stl",
			expectedBucket: "printvend-models",
			expectedKey:    "uploads/keychain.stl",
			expectedOK:     true,
		},
		{
			name:           "virtual hosted https",
			ref:            "https://printvend-models.s3.us-east-1.amazonaws.com/uploads/keychain.stl",
			expectedBucket: "printvend-models",
			expectedKey:    "uploads/keychain.stl",
			expectedOK:     true,
		},
		{
			name:       "s3 scheme without key",
			ref:        "s3://printvend-models",
			expectedOK: false,
		},
		{
			name:       "plain https url",
			ref:        "https://example.com/models/keychain.stl",
			expectedOK: false,
		},
		{
			name:       "not a url",
			ref:        "keychain.stl",
			expectedOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, ok := ParseS3URL(tt.ref)
			assert.Equal(t, tt.expectedOK, ok)
			if tt.expectedOK {
				assert.Equal(t, tt.expectedBucket, bucket)
				assert.Equal(t, tt.expectedKey, key)
				assert.False(t, strings.HasPrefix(key, "/"))
			}
		})
	}
}
