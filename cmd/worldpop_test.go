//go:build !integration

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileNameFromURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "worldpop https",
			url:  "https://data.worldpop.org/GIS/Population/Global_2000_2020_1km_UNadj/2020/IND/ind_ppp_2020_1km_Aggregated_UNadj.tif",
			want: "ind_ppp_2020_1km_Aggregated_UNadj.tif",
		},
		{
			name: "ftp mirror",
			url:  "ftp://ftp.worldpop.org/GIS/Population/ind_ppp_2020.tif",
			want: "ind_ppp_2020.tif",
		},
		{
			name:    "no path",
			url:     "https://data.worldpop.org/",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fileNameFromURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
