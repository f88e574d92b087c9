package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// Sample message bodies spanning the urgency categories the classifier
// recognizes. The -body flag overrides these.
var sampleBodies = []string{
	"URGENT water leak under the sink at %s please call back",
	"No heating since this morning, can someone come out today? %s",
	"Hi, could I get a quote for a new bathroom? I'm at %s",
	"Missed your call, what was it about?",
	"2",
	"Emergency! Burst pipe flooding the kitchen, postcode %s",
}

func main() {
	target := flag.String("url", "http://localhost:3000/webhook/sms", "Webhook URL to post to")
	from := flag.String("from", "", "Sender phone number (random UK mobile if empty)")
	to := flag.String("to", "+441134960000", "Destination number the tradesperson registered")
	body := flag.String("body", "", "Message body (random sample if empty)")
	sid := flag.String("sid", "", "MessageSid value (random SM... if empty, 'none' to omit)")
	count := flag.Int("count", 1, "Number of messages to send")
	interval := flag.Duration("interval", 500*time.Millisecond, "Delay between messages")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Inbound SMS webhook tester\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Posts form-encoded inbound SMS callbacks to a running missed-call router.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	for i := 0; i < *count; i++ {
		form := url.Values{}
		form.Set("From", pickFrom(*from))
		form.Set("To", *to)
		form.Set("Body", pickBody(*body))
		if messageSID := pickSID(*sid); messageSID != "" {
			form.Set("MessageSid", messageSID)
		}

		resp, err := client.PostForm(*target, form)
		if err != nil {
			fmt.Printf("[%d] POST failed: %v\n", i+1, err)
			continue
		}
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		fmt.Printf("[%d] %s -> %d %s\n", i+1, form.Get("Body"), resp.StatusCode, strings.TrimSpace(string(respBody)))

		if i+1 < *count {
			time.Sleep(*interval)
		}
	}
}

func pickFrom(override string) string {
	if override != "" {
		return override
	}
	return "+447" + gofakeit.Numerify("#########")
}

func pickBody(override string) string {
	if override != "" {
		return override
	}
	sample := sampleBodies[rand.Intn(len(sampleBodies))]
	if strings.Contains(sample, "%s") {
		return fmt.Sprintf(sample, randomPostcode())
	}
	return sample
}

func pickSID(override string) string {
	switch override {
	case "none":
		return ""
	case "":
		return "SM" + gofakeit.Numerify(strings.Repeat("#", 32))
	default:
		return override
	}
}

func randomPostcode() string {
	return gofakeit.RandomString([]string{"M1 1AE", "SW1A 1AA", "LS6 2AB", "N16 8QJ", "B33 8TH"})
}
