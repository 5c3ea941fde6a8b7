// Package feedgen builds XML feeds for a search appliance. It contains the
// document model, the feed encoder and a pipeline which moves documents from
// wherever they live into feeds.
//
// Of principal importance is the feed pipeline. Interfaces and basic
// implementations of each stage listed below are included in this package,
// and implementations which rely on other software are in sub-packages.
//
// 1. Source
//
//    A Source is at the beginning of every feed. Documents live in files, S3
//    buckets, Kafka topics, or arrive over HTTP. Different Sources know how to
//    get them out of the various systems holding them, one piece at a time,
//    all behind one interface. It is not the job of the Source to massage the
//    data. That job falls to the Parser, so that one parser can be coupled to
//    several sources, and fetching can scale separately from parsing.
//
// 2. Parser
//
//    The Parser turns whatever a Source returns into a Document: a set of
//    named properties, each holding one or more typed values (see
//    document.go). Property names in the google: namespace carry the feed
//    protocol's controls, such as the docid, the mime type, the content and
//    the ACL principals. Everything else becomes metadata.
//
// 3. Filter
//
//    Filters rewrite documents before they are encoded. The ACL transform
//    which adapts documents to what the appliance supports always runs
//    first. Filters configured by the user, such as deleting properties or
//    adding a geohash, follow.
//
// 4. Feed
//
//    A Feed encodes documents into records until it is nearly full. Content
//    is base64 encoded, optionally compressed, and streamed into an arena
//    which is rolled back if a document fails to encode.
//
// 5. Sink
//
//    A Sink receives each closed Feed. Feeds are written to files, archived
//    to S3, or collected in memory by tests.
package feedgen
