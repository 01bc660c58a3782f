package client

import (
	"encoding/binary"

	"github.com/tturner/cipmsg/internal/pccc"
)

// dataFile is the storage of one PCCC data file.
type dataFile struct {
	fileType pccc.FileType
	data     []byte
}

// dataTables answers PCCC requests from in-memory data files laid out like
// an SLC-500 default program. Addressing problems are reported in the
// reply STS/EXT STS, as a processor does.
type dataTables map[uint16]*dataFile

func newDataTables() dataTables {
	tables := dataTables{}
	for _, f := range []struct {
		number   uint16
		ft       pccc.FileType
		elements int
	}{
		{0, pccc.FileTypeOutput, 32},
		{1, pccc.FileTypeInput, 32},
		{2, pccc.FileTypeStatus, 64},
		{3, pccc.FileTypeBit, 32},
		{4, pccc.FileTypeTimer, 16},
		{5, pccc.FileTypeCounter, 16},
		{6, pccc.FileTypeControl, 16},
		{7, pccc.FileTypeInteger, 256},
		{8, pccc.FileTypeFloat, 64},
		{10, pccc.FileTypeASCII, 32},
	} {
		tables[f.number] = &dataFile{fileType: f.ft, data: make([]byte, f.elements*f.ft.ByteSize())}
	}
	return tables
}

// span returns the n bytes addressed by addr, or false past the end of
// the file or when the file type does not match.
func (d dataTables) span(addr pccc.Address, n int) ([]byte, bool) {
	f, ok := d[addr.FileNumber]
	if !ok || f.fileType != addr.FileType {
		return nil, false
	}
	off := int(addr.Element)*f.fileType.ByteSize() + int(addr.SubElement)*2
	if off+n > len(f.data) {
		return nil, false
	}
	return f.data[off : off+n], true
}

func (d dataTables) serve(frame []byte) ([]byte, error) {
	req, err := pccc.DecodeRequest(frame)
	if err != nil {
		return nil, err
	}
	resp := pccc.Response{Command: req.Command | 0x40, TNS: req.TNS}
	reject := func(ext uint8) []byte {
		resp.Status, resp.ExtSTS, resp.Data = pccc.StatusExtended, ext, nil
		return pccc.EncodeResponse(resp)
	}
	if req.Command != pccc.CmdExtended {
		resp.Status = 0x10
		return pccc.EncodeResponse(resp), nil
	}

	switch req.Function {
	case pccc.FncEcho:
		resp.Data = req.Data
	case pccc.FncTypedRead3Addr:
		count, addr, _, err := pccc.DecodeAddressData(req.Data)
		if err != nil {
			return reject(0x01), nil
		}
		if _, ok := d[addr.FileNumber]; !ok {
			return reject(0x06), nil
		}
		words, ok := d.span(addr, int(count))
		if !ok {
			return reject(0x0A), nil
		}
		resp.Data = append([]byte(nil), words...)
	case pccc.FncTypedWrite3Addr:
		_, addr, data, err := pccc.DecodeAddressData(req.Data)
		if err != nil {
			return reject(0x01), nil
		}
		dst, ok := d.span(addr, len(data))
		if !ok {
			return reject(0x0A), nil
		}
		copy(dst, data)
	case pccc.FncMaskedWrite3Addr:
		_, addr, data, err := pccc.DecodeAddressData(req.Data)
		if err != nil || len(data) != 4 {
			return reject(0x01), nil
		}
		word, ok := d.span(addr, 2)
		if !ok {
			return reject(0x0A), nil
		}
		mask := binary.LittleEndian.Uint16(data[0:2])
		value := binary.LittleEndian.Uint16(data[2:4])
		binary.LittleEndian.PutUint16(word, binary.LittleEndian.Uint16(word)&^mask|value&mask)
	default:
		resp.Status = 0x10
	}
	return pccc.EncodeResponse(resp), nil
}
