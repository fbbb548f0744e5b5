package model

import "time"

// Sender identifies one address slot on a message. Name may be empty.
type Sender struct {
	Email string
	Name  string
}

// Message is the provider-normalized view of a single mail message. Only
// the address headers and date survive normalization; bodies never cross
// the provider boundary.
type Message struct {
	Sender Sender
	To     []Sender
	Cc     []Sender
	Bcc    []Sender
	Date   time.Time
}

// Thread is a conversation as returned by a provider's detail fetch.
type Thread struct {
	ID       string
	Messages []Message
}

// ThreadSummary is one listing entry of a folder page.
type ThreadSummary struct {
	ID string
}

// ThreadPage is one page of a folder listing. An empty NextPageToken means
// the listing is exhausted.
type ThreadPage struct {
	Threads       []ThreadSummary
	NextPageToken string
}

// Alias is one sending identity of an account.
type Alias struct {
	Email   string
	Name    string
	Primary bool
}

// OutgoingMessage is a message to be sent through a provider.
type OutgoingMessage struct {
	To      []Sender
	Cc      []Sender
	Bcc     []Sender
	Subject string
	Body    string
}
