package general

import (
	"fmt"
	"runtime"
	"time"

	"CommunityBot/bot"

	"github.com/bwmarrin/discordgo"
)

func (g *general) ping(b *bot.Bot, s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	embed := &discordgo.MessageEmbed{
		Title:       "Bot Status Report",
		Description: "Detailed technical stats for the bot",
		Color:       0x00FF00,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Latency", Value: fmt.Sprintf("%d ms", s.HeartbeatLatency().Milliseconds())},
			{Name: "Memory Usage", Value: fmt.Sprintf("%.2f MB heap / %.2f MB from OS", mib(mem.HeapAlloc), mib(mem.Sys))},
			{Name: "Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine())},
			{Name: "Uptime", Value: uptime(time.Since(b.StartedAt))},
		},
	}
	b.SendEmbed(m.ChannelID, embed)
}

func mib(bytes uint64) float64 {
	return float64(bytes) / (1 << 20)
}

// uptime renders d as HH:MM:SS, with a day count once it passes a day.
func uptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	clock := fmt.Sprintf("%02d:%02d:%02d", d/time.Hour, (d%time.Hour)/time.Minute, (d%time.Minute)/time.Second)
	if days > 0 {
		return fmt.Sprintf("%dd %s", days, clock)
	}
	return clock
}
