package mediacenter

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/nerrad567/theatre-core/internal/device"
)

// response is the web service envelope:
//
//	<Response Status="OK">
//	  <Item Name="State">2</Item>
//	  ...
//	</Response>
type response struct {
	XMLName xml.Name `xml:"Response"`
	Status  string   `xml:"Status,attr"`
	Items   []item   `xml:"Item"`
}

type item struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:",chardata"`
}

// infoFields maps item names to PlaybackInfo fields. Items not listed are
// ignored; listed items that are absent stay empty.
var infoFields = map[string]func(*device.PlaybackInfo) *string{
	"ZoneID":                    func(i *device.PlaybackInfo) *string { return &i.ZoneID },
	"State":                     func(i *device.PlaybackInfo) *string { return &i.State },
	"FileKey":                   func(i *device.PlaybackInfo) *string { return &i.FileKey },
	"NextFileKey":               func(i *device.PlaybackInfo) *string { return &i.NextFileKey },
	"PositionMS":                func(i *device.PlaybackInfo) *string { return &i.PositionMS },
	"DurationMS":                func(i *device.PlaybackInfo) *string { return &i.DurationMS },
	"ElapsedTimeDisplay":        func(i *device.PlaybackInfo) *string { return &i.ElapsedTimeDisplay },
	"RemainingTimeDisplay":      func(i *device.PlaybackInfo) *string { return &i.RemainingTimeDisplay },
	"TotalTimeDisplay":          func(i *device.PlaybackInfo) *string { return &i.TotalTimeDisplay },
	"PositionDisplay":           func(i *device.PlaybackInfo) *string { return &i.PositionDisplay },
	"PlayingNowPosition":        func(i *device.PlaybackInfo) *string { return &i.PlayingNowPosition },
	"PlayingNowTracks":          func(i *device.PlaybackInfo) *string { return &i.PlayingNowTracks },
	"PlayingNowPositionDisplay": func(i *device.PlaybackInfo) *string { return &i.PlayingNowPositionDisplay },
	"PlayingNowChangeCounter":   func(i *device.PlaybackInfo) *string { return &i.PlayingNowChangeCounter },
	"Bitrate":                   func(i *device.PlaybackInfo) *string { return &i.Bitrate },
	"Bitdepth":                  func(i *device.PlaybackInfo) *string { return &i.Bitdepth },
	"SampleRate":                func(i *device.PlaybackInfo) *string { return &i.SampleRate },
	"Channels":                  func(i *device.PlaybackInfo) *string { return &i.Channels },
	"Chapter":                   func(i *device.PlaybackInfo) *string { return &i.Chapter },
	"Volume":                    func(i *device.PlaybackInfo) *string { return &i.Volume },
	"VolumeDisplay":             func(i *device.PlaybackInfo) *string { return &i.VolumeDisplay },
	"ImageURL":                  func(i *device.PlaybackInfo) *string { return &i.ImageURL },
	"Name":                      func(i *device.PlaybackInfo) *string { return &i.Name },
	"Status":                    func(i *device.PlaybackInfo) *string { return &i.Status },
}

func decodeInfo(r io.Reader) (device.PlaybackInfo, error) {
	var resp response
	if err := xml.NewDecoder(r).Decode(&resp); err != nil {
		return device.PlaybackInfo{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Status != "" && resp.Status != "OK" {
		return device.PlaybackInfo{}, fmt.Errorf("%w: status %q", ErrResponse, resp.Status)
	}

	var info device.PlaybackInfo
	for _, it := range resp.Items {
		if field, ok := infoFields[it.Name]; ok {
			*field(&info) = it.Value
		}
	}
	return info, nil
}
