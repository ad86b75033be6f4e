package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"quoteflow/internal/model/enum"
	"quoteflow/internal/normalizer"
	"quoteflow/internal/recorder"
)

func main() {
	dir := flag.String("dir", "data/raw", "recording directory")
	prefix := flag.String("prefix", "", "segment file prefix (default: raw)")
	speed := flag.Float64("speed", 0, "playback speed (1=real-time, 0=no pacing)")
	noChecksum := flag.Bool("no-checksum", false, "disable checksum validation")
	maxPayload := flag.Int("max-payload", 0, "max payload size in bytes (0=unlimited)")
	decode := flag.Bool("decode", false, "normalize records into ticks")
	sources := flag.String("source", "", "comma separated feeds to keep, e.g. DCE_L1,CTP_TICK")
	flag.Parse()

	var tags []enum.SourceTag
	for _, name := range strings.Split(*sources, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		tag, ok := enum.ParseSourceTag(name)
		if !ok {
			log.Fatalf("unknown source %q", name)
		}
		tags = append(tags, tag)
	}

	pb, err := recorder.NewPlayback(recorder.PlaybackConfig{
		Dir:             *dir,
		FilePrefix:      *prefix,
		Speed:           *speed,
		DisableChecksum: *noChecksum,
		MaxPayloadSize:  *maxPayload,
		Sources:         tags,
	})
	if err != nil {
		log.Fatalf("playback init failed: %v", err)
	}

	norm := normalizer.New()
	var index int
	err = pb.Run(context.Background(), func(h recorder.Header, payload []byte) error {
		index++
		fmt.Printf("%06d seq=%d source=%s enc=%d recv=%s len=%d\n",
			index, h.Seq, h.Tag, h.Encoding, time.Unix(0, h.RecvTime).Format(time.RFC3339Nano), len(payload))
		if !*decode {
			return nil
		}
		msg, err := recorder.DecodeMessage(h, payload)
		if err != nil {
			fmt.Printf("  decode failed: %v\n", err)
			return nil
		}
		tick, err := norm.Normalize(msg)
		if err != nil {
			fmt.Printf("  normalize failed: %v\n", err)
			return nil
		}
		fmt.Printf("  tick %s %s last=%g vol=%d bid=%g/%d ask=%g/%d at=%s\n",
			tick.Symbol, tick.Exchange, tick.LastPrice, tick.Volume,
			tick.BidPrice1, tick.BidVolume1, tick.AskPrice1, tick.AskVolume1,
			tick.Datetime.Format("2006-01-02 15:04:05.000"))
		return nil
	})
	if err != nil {
		log.Fatalf("playback run failed: %v", err)
	}
}
