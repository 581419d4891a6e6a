// Package recorder ingests CreateAudit commands raised by casework services
// and persists them as audit records.
//
// # Recording Flow
//
//  1. A service raises a CreateAudit command (correlation ID, raising service,
//     JSON payload, namespace, event kind, user, optional case UUID)
//  2. The recorder validates the command and assigns a UUID and timestamp
//  3. The record is written to the storage backend, either synchronously or
//     through a buffered background worker
//
// # Basic Usage
//
//	rec := recorder.NewRecorder(store, &recorder.Config{
//	    AsyncBuffer:  1000,
//	    WriteTimeout: 5 * time.Second,
//	})
//	defer rec.Close()
//
//	_, err := rec.Record(ctx, &recorder.CreateAudit{
//	    CorrelationID:  "corr-1",
//	    RaisingService: "casework",
//	    Namespace:      "local",
//	    Type:           audit.EventCaseCreated,
//	    UserID:         userID,
//	    CaseUUID:       caseUUID,
//	    Payload:        payload,
//	})
//
// Close drains any buffered records before returning.
package recorder
