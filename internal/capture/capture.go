// Package capture records encapsulation frames to pcap files and reads them
// back. Frames are wrapped in synthetic Ethernet/IPv4/TCP packets so the
// trace opens in Wireshark with the ENIP dissector on port 44818.
package capture

import (
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/tturner/cipmsg/internal/enip"
)

// ENIPPort is the registered EtherNet/IP TCP port.
const ENIPPort = 44818

const snapLen = 65535

// Endpoints names the two ends of the recorded TCP stream.
type Endpoints struct {
	ClientIP   net.IP
	ClientPort uint16
	ServerIP   net.IP
	ServerPort uint16
}

// DefaultEndpoints is used when the real addresses are unknown.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		ClientIP:   net.IPv4(192, 168, 100, 10),
		ClientPort: 50000,
		ServerIP:   net.IPv4(192, 168, 100, 20),
		ServerPort: ENIPPort,
	}
}

// EndpointsFromAddrs builds endpoints from the transport's socket addresses.
// Non-TCP or non-IPv4 addresses fall back to DefaultEndpoints.
func EndpointsFromAddrs(local, remote net.Addr) Endpoints {
	ep := DefaultEndpoints()
	if l, ok := local.(*net.TCPAddr); ok && l.IP.To4() != nil {
		ep.ClientIP, ep.ClientPort = l.IP, uint16(l.Port)
	}
	if r, ok := remote.(*net.TCPAddr); ok && r.IP.To4() != nil {
		ep.ServerIP, ep.ServerPort = r.IP, uint16(r.Port)
	}
	return ep
}

// Recorder appends frames to a pcap stream. It is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	writer    *pcapgo.Writer
	closer    io.Closer
	ep        Endpoints
	clientSeq uint32
	serverSeq uint32
	now       func() time.Time
}

// Create opens path and writes the pcap file header.
func Create(path string, ep Endpoints) (*Recorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create pcap file: %w", err)
	}
	r, err := NewRecorder(file, ep)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// NewRecorder writes the pcap file header to w.
func NewRecorder(w io.Writer, ep Endpoints) (*Recorder, error) {
	writer := pcapgo.NewWriter(w)
	if err := writer.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	return &Recorder{
		writer:    writer,
		ep:        ep,
		clientSeq: 1,
		serverSeq: 1,
		now:       time.Now,
	}, nil
}

// RecordFrame writes one frame. Outbound frames travel client to server.
func (r *Recorder) RecordFrame(outbound bool, frame []byte) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	srcIP, dstIP := r.ep.ClientIP, r.ep.ServerIP
	srcPort, dstPort := r.ep.ClientPort, r.ep.ServerPort
	seq, ack := r.clientSeq, r.serverSeq
	if !outbound {
		srcIP, dstIP = dstIP, srcIP
		srcPort, dstPort = dstPort, srcPort
		seq, ack = ack, seq
	}

	ethernet := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}
	if !outbound {
		ethernet.SrcMAC, ethernet.DstMAC = ethernet.DstMAC, ethernet.SrcMAC
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    srcIP.To4(),
		DstIP:    dstIP.To4(),
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(srcPort),
		DstPort: layers.TCPPort(dstPort),
		ACK:     true,
		PSH:     true,
		Seq:     seq,
		Ack:     ack,
		Window:  65535,
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		return fmt.Errorf("tcp checksum: %w", err)
	}

	buffer := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buffer, opts, ethernet, ip, tcp, gopacket.Payload(frame)); err != nil {
		return fmt.Errorf("serialize packet: %w", err)
	}
	data := buffer.Bytes()
	if err := r.writer.WritePacket(gopacket.CaptureInfo{
		Timestamp:     r.now(),
		CaptureLength: len(data),
		Length:        len(data),
	}, data); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}

	if outbound {
		r.clientSeq += uint32(len(frame))
	} else {
		r.serverSeq += uint32(len(frame))
	}
	return nil
}

// Close closes the underlying file when the recorder owns one.
func (r *Recorder) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.closer.Close()
	r.closer = nil
	return err
}

// Frame is one encapsulation frame recovered from a capture.
type Frame struct {
	Timestamp time.Time
	Outbound  bool
	Raw       []byte
	Encap     enip.ENIPEncapsulation
}

// ReadFile reads every ENIP frame from a pcap file.
func ReadFile(path string) ([]Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pcap file: %w", err)
	}
	defer file.Close()
	return ReadFrames(file)
}

// ReadFrames reads a pcap stream and returns the ENIP frames carried on TCP
// port 44818, reassembling frames split across segments per direction.
// Frames that fail to decode are skipped.
func ReadFrames(r io.Reader) ([]Frame, error) {
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("read pcap header: %w", err)
	}

	var frames []Frame
	streams := make(map[string][]byte)
	for {
		data, ci, err := reader.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			return frames, fmt.Errorf("read packet: %w", err)
		}

		packet := gopacket.NewPacket(data, reader.LinkType(), gopacket.Default)
		tcpLayer := packet.Layer(layers.LayerTypeTCP)
		if tcpLayer == nil {
			continue
		}
		tcp, _ := tcpLayer.(*layers.TCP)
		if tcp.SrcPort != ENIPPort && tcp.DstPort != ENIPPort {
			continue
		}
		if len(tcp.Payload) == 0 {
			continue
		}

		key := fmt.Sprintf("%d>%d", tcp.SrcPort, tcp.DstPort)
		if nl := packet.NetworkLayer(); nl != nil {
			key = nl.NetworkFlow().String() + " " + key
		}
		buf := append(streams[key], tcp.Payload...)
		outbound := tcp.DstPort == ENIPPort

		for len(buf) >= enip.HeaderSize {
			n, err := enip.FrameLength(buf)
			if err != nil || len(buf) < n {
				break
			}
			raw := append([]byte(nil), buf[:n]...)
			buf = buf[n:]
			encap, err := enip.DecodeENIP(raw)
			if err != nil {
				continue
			}
			frames = append(frames, Frame{Timestamp: ci.Timestamp, Outbound: outbound, Raw: raw, Encap: encap})
		}
		streams[key] = buf
	}
	return frames, nil
}
