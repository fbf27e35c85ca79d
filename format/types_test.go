package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompressionType_String(t *testing.T) {
	require.Equal(t, "None", CompressionNone.String())
	require.Equal(t, "Zstd", CompressionZstd.String())
	require.Equal(t, "S2", CompressionS2.String())
	require.Equal(t, "LZ4", CompressionLZ4.String())
	require.Equal(t, "Unknown", CompressionType(0xEE).String())
}

func TestEntryType_String(t *testing.T) {
	require.Equal(t, "Texture", EntryTexture.String())
	require.Equal(t, "Mesh", EntryMesh.String())
	require.Equal(t, "Audio", EntryAudio.String())
	require.Equal(t, "Script", EntryScript.String())
	require.Equal(t, "Data", EntryData.String())
	require.Equal(t, "Unknown", EntryUnknown.String())
}
