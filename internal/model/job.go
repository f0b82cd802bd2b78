package model

// Job is one periodic instance of a task. Task ids are the task priorities, as expected by the solver.
type Job struct {
	TaskId     int
	JobId      int
	ArrivalMin int64
	ArrivalMax int64
	CostMin    int64
	CostMax    int64
	Deadline   int64
	// Reserved solver column; the generator writes the job id here.
	Priority int
}

// PrecedenceEdge orders the k-th job of a task after the k-th job of its predecessor in the same chain.
type PrecedenceEdge struct {
	PredTaskId int
	PredJobId  int
	SuccTaskId int
	SuccJobId  int
}

// JobSet is the job-level expansion of a task set over one hyperperiod.
type JobSet struct {
	Hyperperiod int64
	Jobs        []Job
	Edges       []PrecedenceEdge
}
